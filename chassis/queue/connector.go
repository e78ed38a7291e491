package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/sqs"
	"github.com/aws/aws-sdk-go/service/sqs/sqsiface"

	"github.com/freundallein/sqsgateway/chassis/keyserver"
	"github.com/freundallein/sqsgateway/chassis/metrics"
	"github.com/freundallein/sqsgateway/chassis/monkey"
)

// KeySource hands out a fresh access key pair.
type KeySource interface {
	Fetch(ctx context.Context) (keyserver.Pair, error)
}

// AWSConnector builds a new SQS client for every request. When Keys is set,
// credentials come from it on every call; otherwise the shared credentials
// file is used.
type AWSConnector struct {
	Config Config
	Keys   KeySource
	Monkey *monkey.Monkey

	newAPI func(*session.Session) sqsiface.SQSAPI
}

// NewAWSConnector ...
func NewAWSConnector(cfg Config, keys KeySource, m *monkey.Monkey) *AWSConnector {
	return &AWSConnector{
		Config: cfg,
		Keys:   keys,
		Monkey: m,
		newAPI: func(ssn *session.Session) sqsiface.SQSAPI {
			return sqs.New(ssn)
		},
	}
}

// Connect fetches credentials and opens a session.
func (c *AWSConnector) Connect(ctx context.Context) (Client, error) {
	creds, err := c.credentials(ctx)
	if err != nil {
		return nil, err
	}
	awsCfg := &aws.Config{
		Region:      aws.String(c.Config.Region),
		Credentials: creds,
		MaxRetries:  aws.Int(c.Config.Retries),
	}
	if c.Config.Endpoint != "" {
		awsCfg.Endpoint = aws.String(c.Config.Endpoint)
	}
	ssn, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("open session: %w: %w", ErrUpstream, err)
	}
	var client Client = NewAWSQueue(c.newAPI(ssn), c.Config)
	if c.Monkey != nil {
		client = &chaosClient{next: client, monkey: c.Monkey}
	}
	return client, nil
}

func (c *AWSConnector) credentials(ctx context.Context) (*credentials.Credentials, error) {
	if c.Keys == nil {
		return credentials.NewSharedCredentials(c.Config.CredentialsFile, c.Config.CredentialsProfile), nil
	}
	started := time.Now()
	pair, err := c.Keys.Fetch(ctx)
	metrics.ObserveUpstream("fetch_credentials", started, err)
	if err != nil {
		return nil, fmt.Errorf("fetch credentials: %w: %w", ErrUpstream, err)
	}
	return credentials.NewStaticCredentials(pair.AccessKey, pair.SecretKey, ""), nil
}
