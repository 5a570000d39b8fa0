package handler

import (
	"context"
	"fmt"
	"log"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/mbland/optinlist/agent"
	"github.com/mbland/optinlist/db"
	"github.com/mbland/optinlist/email"
)

// AwsConfigLoader supplies the AWS configuration for the DynamoDB store and
// the SES transport. It's only called if one of them is selected.
type AwsConfigLoader func(ctx context.Context) (aws.Config, error)

func LoadDefaultAwsConfig(ctx context.Context) (aws.Config, error) {
	return config.LoadDefaultConfig(ctx)
}

// NewProdAgent builds the store and mailer that opts selects and returns an
// agent using them.
//
// The returned close function releases the store's resources, if any. SQL
// stores have their tables created if they don't exist yet.
func NewProdAgent(
	ctx context.Context,
	opts *Options,
	loadAwsConfig AwsConfigLoader,
	logger *log.Logger,
) (pa *agent.ProdAgent, closeDb func() error, err error) {
	b := &builder{opts: opts, loadAwsConfig: loadAwsConfig}
	var database db.Database
	var mailer email.Mailer

	if database, closeDb, err = b.newDatabase(ctx); err != nil {
		closeDb = nil
		return
	} else if mailer, err = b.newMailer(ctx); err != nil {
		err = joinCloseErr(err, closeDb)
		closeDb = nil
		return
	}
	pa = agent.NewProdAgent(
		opts.ApiBaseUrl, opts.SenderAddress, database, mailer, logger,
	)
	return
}

type builder struct {
	opts          *Options
	loadAwsConfig AwsConfigLoader
	awsConfig     *aws.Config
}

func (b *builder) getAwsConfig(ctx context.Context) (aws.Config, error) {
	if b.awsConfig == nil {
		cfg, err := b.loadAwsConfig(ctx)
		if err != nil {
			return cfg, fmt.Errorf("failed to load AWS config: %w", err)
		}
		b.awsConfig = &cfg
	}
	return *b.awsConfig, nil
}

func (b *builder) newDatabase(
	ctx context.Context,
) (database db.Database, closeDb func() error, err error) {
	closeDb = func() error { return nil }

	switch b.opts.Store {
	case StoreDynamoDb:
		var cfg aws.Config
		if cfg, err = b.getAwsConfig(ctx); err == nil {
			database = db.NewDynamoDb(cfg, b.opts.SubscribersTableName)
		}
		return
	case StorePostgres:
		return b.newSqlDb(ctx, db.NewPostgresDb)
	case StoreSqlite:
		return b.newSqlDb(ctx, db.NewSqliteDb)
	}
	return nil, nil, fmt.Errorf("unknown store: %s", b.opts.Store)
}

func (b *builder) newSqlDb(
	ctx context.Context, open func(string) (*db.SqlDb, error),
) (database db.Database, closeDb func() error, err error) {
	var sqlDb *db.SqlDb

	if sqlDb, err = open(b.opts.DatabaseUrl); err != nil {
		return
	} else if err = sqlDb.CreateTables(ctx); err != nil {
		err = joinCloseErr(err, sqlDb.Close)
		return
	}
	return sqlDb, sqlDb.Close, nil
}

func (b *builder) newMailer(ctx context.Context) (email.Mailer, error) {
	switch b.opts.EmailTransport {
	case TransportSes:
		cfg, err := b.getAwsConfig(ctx)
		if err != nil {
			return nil, err
		}
		cfg.HTTPClient = awshttp.NewBuildableClient().
			WithTimeout(b.opts.EmailTimeout)
		return email.NewSesMailer(cfg, b.opts.ConfigurationSet), nil
	case TransportPostmark:
		return email.NewPostmarkMailer(
			b.opts.PostmarkServerToken, b.opts.EmailTimeout,
		), nil
	case TransportSmtp:
		smtp := b.opts.Smtp
		return email.NewSmtpMailer(
			smtp.Host,
			smtp.Port,
			smtp.Username,
			smtp.Password,
			b.opts.EmailTimeout,
		), nil
	}
	return nil, fmt.Errorf("unknown email transport: %s", b.opts.EmailTransport)
}

func joinCloseErr(err error, closeDb func() error) error {
	if closeErr := closeDb(); closeErr != nil {
		return fmt.Errorf("%w\nclose also failed: %w", err, closeErr)
	}
	return err
}
