package handler

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	StoreDynamoDb = "dynamodb"
	StorePostgres = "postgres"
	StoreSqlite   = "sqlite"

	TransportSes      = "ses"
	TransportPostmark = "postmark"
	TransportSmtp     = "smtp"
)

const DefaultEmailTimeout = 10 * time.Second

type SmtpOptions struct {
	Host     string
	Port     int
	Username string
	Password string
}

type Options struct {
	ApiBaseUrl     string
	SenderAddress  string
	EmailTransport string
	Store          string

	SubscribersTableName string
	DatabaseUrl          string

	ConfigurationSet    string
	PostmarkServerToken string
	Smtp                SmtpOptions
	EmailTimeout        time.Duration
}

type UndefinedEnvVarsError struct {
	UndefinedVars []string
}

func (e *UndefinedEnvVarsError) Error() string {
	return "undefined environment variables: " +
		strings.Join(e.UndefinedVars, ", ")
}

// GetOptions reads Options from the environment via getenv.
//
// Variables required by the selected store and email transport are checked
// along with the common ones, and every missing variable is reported at once.
func GetOptions(getenv func(string) string) (*Options, error) {
	env := environment{getenv: getenv}
	return env.options()
}

type environment struct {
	getenv      func(string) string
	missingVars []string
}

func (env *environment) options() (*Options, error) {
	opts := Options{}
	env.assign(&opts.ApiBaseUrl, "API_BASE_URL")
	env.assign(&opts.SenderAddress, "SENDER_ADDRESS")
	env.assign(&opts.EmailTransport, "EMAIL_TRANSPORT")
	env.assign(&opts.Store, "STORE")

	var errs []string

	switch opts.Store {
	case "":
	case StoreDynamoDb:
		env.assign(&opts.SubscribersTableName, "SUBSCRIBERS_TABLE_NAME")
	case StorePostgres, StoreSqlite:
		env.assign(&opts.DatabaseUrl, "DATABASE_URL")
	default:
		errs = append(errs, fmt.Sprintf("unknown STORE: %q", opts.Store))
	}

	switch opts.EmailTransport {
	case "":
	case TransportSes:
		opts.ConfigurationSet = env.getenv("CONFIGURATION_SET")
	case TransportPostmark:
		env.assign(&opts.PostmarkServerToken, "POSTMARK_SERVER_TOKEN")
	case TransportSmtp:
		env.assign(&opts.Smtp.Host, "SMTP_HOST")
		var port string
		env.assign(&port, "SMTP_PORT")
		if p, err := strconv.Atoi(port); port != "" && (err != nil || p <= 0) {
			errs = append(errs, fmt.Sprintf("invalid SMTP_PORT: %q", port))
		} else {
			opts.Smtp.Port = p
		}
		opts.Smtp.Username = env.getenv("SMTP_USERNAME")
		opts.Smtp.Password = env.getenv("SMTP_PASSWORD")
	default:
		const errFmt = "unknown EMAIL_TRANSPORT: %q"
		errs = append(errs, fmt.Sprintf(errFmt, opts.EmailTransport))
	}

	opts.EmailTimeout = DefaultEmailTimeout
	if timeout := env.getenv("EMAIL_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err != nil || d <= 0 {
			const errFmt = "invalid EMAIL_TIMEOUT: %q"
			errs = append(errs, fmt.Sprintf(errFmt, timeout))
		} else {
			opts.EmailTimeout = d
		}
	}

	if len(env.missingVars) != 0 {
		return nil, &UndefinedEnvVarsError{UndefinedVars: env.missingVars}
	} else if len(errs) != 0 {
		return nil, fmt.Errorf("invalid options: %s", strings.Join(errs, ", "))
	}
	return &opts, nil
}

func (env *environment) assign(opt *string, varname string) {
	if value := env.getenv(varname); value == "" {
		env.missingVars = append(env.missingVars, varname)
	} else {
		*opt = value
	}
}
