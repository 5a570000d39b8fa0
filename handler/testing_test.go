//go:build small_tests || all_tests

package handler

import (
	"context"

	"github.com/mbland/optinlist/ops"
)

// testAgent records the arguments of its most recent call and returns the
// preset error or result.
type testAgent struct {
	Name          string
	Email         string
	Token         string
	Issue         *ops.NewsletterIssue
	SubscribeErr  error
	ConfirmErr    error
	PublishResult *ops.PublishResult
	PublishErr    error
}

func (a *testAgent) Subscribe(_ context.Context, name, email string) error {
	a.Name = name
	a.Email = email
	return a.SubscribeErr
}

func (a *testAgent) Confirm(_ context.Context, token string) error {
	a.Token = token
	return a.ConfirmErr
}

func (a *testAgent) Publish(
	_ context.Context, issue *ops.NewsletterIssue,
) (*ops.PublishResult, error) {
	a.Issue = issue
	return a.PublishResult, a.PublishErr
}
