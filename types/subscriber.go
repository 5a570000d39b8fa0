package types

import "errors"

// NewSubscriber is the validated content of a subscription form.
type NewSubscriber struct {
	Name  SubscriberName
	Email SubscriberEmail
}

// ParseNewSubscriber validates both form fields, reporting every failure.
func ParseNewSubscriber(name, email string) (*NewSubscriber, error) {
	n, nameErr := NewSubscriberName(name)
	e, emailErr := NewSubscriberEmail(email)

	if nameErr != nil || emailErr != nil {
		return nil, errors.Join(nameErr, emailErr)
	}
	return &NewSubscriber{Name: n, Email: e}, nil
}
