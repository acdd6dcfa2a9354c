package conn

import (
	"fmt"
	"net/url"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	defaultPostgresHost    = "localhost"
	defaultPostgresPort    = 5432
	defaultPostgresSSLMode = "disable"
)

// Option defines connection options for PostgreSQL.
type Option struct {
	Host       string            `json:"host" yaml:"host"`
	Port       int               `json:"port" yaml:"port"`
	User       string            `json:"user" yaml:"user"`
	Password   string            `json:"password" yaml:"password"`
	Database   string            `json:"database" yaml:"database"`
	SSLMode    string            `json:"sslMode" yaml:"sslMode"`
	Params     map[string]string `json:"params" yaml:"params"`
	ConnString string            `json:"connString" yaml:"connString"`

	MaxOpenConns  int `json:"maxOpenConns" yaml:"maxOpenConns"`
	MaxIdleConns  int `json:"maxIdleConns" yaml:"maxIdleConns"`
	ConnMaxLifeMs int `json:"connMaxLifeMs" yaml:"connMaxLifeMs"`
	// RetryMs bounds how long New keeps retrying the first connection; 0 tries once.
	RetryMs int `json:"retryMs" yaml:"retryMs"`

	Config *gorm.Config `json:"-" yaml:"-"`
}

// Client wraps a PostgreSQL connection pool.
type Client struct {
	opt Option
	db  *gorm.DB
}

// New creates a PostgreSQL client from the provided options.
func New(option Option) (*Client, error) {
	connString, err := option.dsn()
	if err != nil {
		return nil, err
	}

	config := option.Config
	if config == nil {
		config = &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)}
	}

	var db *gorm.DB
	open := func() error {
		db, err = gorm.Open(postgres.Open(connString), config)
		if err != nil {
			logs.Warnf("[conn] open postgres %s, err: %+v", option.redacted(), err)
		}
		return err
	}

	if option.RetryMs > 0 {
		boff := backoff.NewExponentialBackOff()
		boff.MaxElapsedTime = time.Duration(option.RetryMs) * time.Millisecond
		err = backoff.Retry(open, boff)
	} else {
		err = open()
	}
	if err != nil {
		return nil, errors.Wrap(err, "open postgres")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "get sql db")
	}
	if option.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(option.MaxOpenConns)
	}
	if option.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(option.MaxIdleConns)
	}
	if option.ConnMaxLifeMs > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(option.ConnMaxLifeMs) * time.Millisecond)
	}

	return &Client{opt: option, db: db}, nil
}

// DB returns the underlying gorm.DB instance.
func (c *Client) DB() *gorm.DB {
	if c == nil {
		return nil
	}
	return c.db
}

// Close closes the underlying connection pool.
func (c *Client) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (opt Option) dsn() (string, error) {
	if opt.ConnString != "" {
		return opt.ConnString, nil
	}

	host := opt.Host
	if host == "" {
		host = defaultPostgresHost
	}

	port := opt.Port
	if port == 0 {
		port = defaultPostgresPort
	}
	if port < 0 || port > 65535 {
		return "", errors.Errorf("invalid postgres port: %d", port)
	}

	sslMode := opt.SSLMode
	if sslMode == "" {
		sslMode = defaultPostgresSSLMode
	}

	u := &url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", host, port),
	}

	if opt.User != "" {
		if opt.Password != "" {
			u.User = url.UserPassword(opt.User, opt.Password)
		} else {
			u.User = url.User(opt.User)
		}
	}

	if opt.Database != "" {
		u.Path = "/" + opt.Database
	}

	query := url.Values{}
	query.Set("sslmode", sslMode)
	for key, value := range opt.Params {
		if key == "" {
			continue
		}
		query.Set(key, value)
	}
	u.RawQuery = query.Encode()

	return u.String(), nil
}

// redacted returns the dsn without the password, for logs.
func (opt Option) redacted() string {
	opt.Password = ""
	if opt.ConnString != "" {
		if u, err := url.Parse(opt.ConnString); err == nil {
			return u.Redacted()
		}
		return "<conn string>"
	}
	dsn, _ := opt.dsn()
	return dsn
}
