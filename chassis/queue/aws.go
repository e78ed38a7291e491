package queue

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"strconv"
	"time"

	log "github.com/freundallein/sqsgateway/chassis/logging"
	"github.com/freundallein/sqsgateway/chassis/metrics"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/sqs"
	"github.com/aws/aws-sdk-go/service/sqs/sqsiface"
	"github.com/google/uuid"
)

const (
	fifoMessageGroup = "default"
	// listPageSize is the largest page ListQueues may request.
	listPageSize = 1000
)

// AWSQueue implementation
type AWSQueue struct {
	queue sqsiface.SQSAPI
	cfg   Config
}

// NewAWSQueue wraps an SQS API client.
func NewAWSQueue(api sqsiface.SQSAPI, cfg Config) *AWSQueue {
	return &AWSQueue{
		queue: api,
		cfg:   cfg,
	}
}

// ListQueues returns the names of all queues, sorted.
func (q *AWSQueue) ListQueues(ctx context.Context) ([]string, error) {
	started := time.Now()
	names := []string{}
	input := &sqs.ListQueuesInput{
		MaxResults: aws.Int64(listPageSize),
	}
	for {
		output, err := q.queue.ListQueuesWithContext(ctx, input)
		if err != nil {
			metrics.ObserveUpstream("list_queues", started, err)
			return nil, translate("list queues", "", err)
		}
		for _, url := range output.QueueUrls {
			names = append(names, path.Base(aws.StringValue(url)))
		}
		if aws.StringValue(output.NextToken) == "" {
			break
		}
		input.NextToken = output.NextToken
	}
	metrics.ObserveUpstream("list_queues", started, nil)
	sort.Strings(names)
	return names, nil
}

// CreateQueue creates name with the configured visibility timeout.
// Creating an existing queue with identical attributes succeeds.
func (q *AWSQueue) CreateQueue(ctx context.Context, name string) error {
	attributes := map[string]*string{
		sqs.QueueAttributeNameVisibilityTimeout: aws.String(strconv.Itoa(q.cfg.VisibilityTimeout)),
	}
	if IsFIFO(name) {
		attributes[sqs.QueueAttributeNameFifoQueue] = aws.String("true")
	}
	started := time.Now()
	output, err := q.queue.CreateQueueWithContext(ctx, &sqs.CreateQueueInput{
		QueueName:  aws.String(name),
		Attributes: attributes,
	})
	metrics.ObserveUpstream("create_queue", started, err)
	if err != nil {
		return translate("create queue", name, err)
	}
	log.WithFields(log.Fields{
		"event": "create_queue",
		"queue": name,
	}).Debug(aws.StringValue(output.QueueUrl))
	return nil
}

// DeleteQueue ...
func (q *AWSQueue) DeleteQueue(ctx context.Context, name string) error {
	url, err := q.queueURL(ctx, name)
	if err != nil {
		return err
	}
	started := time.Now()
	_, err = q.queue.DeleteQueueWithContext(ctx, &sqs.DeleteQueueInput{
		QueueUrl: aws.String(url),
	})
	metrics.ObserveUpstream("delete_queue", started, err)
	if err != nil {
		return translate("delete queue", name, err)
	}
	log.WithFields(log.Fields{
		"event": "delete_queue",
		"queue": name,
	}).Debug(url)
	return nil
}

// CountMessages returns the approximate number of visible messages.
func (q *AWSQueue) CountMessages(ctx context.Context, name string) (int64, error) {
	url, err := q.queueURL(ctx, name)
	if err != nil {
		return 0, err
	}
	started := time.Now()
	output, err := q.queue.GetQueueAttributesWithContext(ctx, &sqs.GetQueueAttributesInput{
		QueueUrl:       aws.String(url),
		AttributeNames: []*string{aws.String(sqs.QueueAttributeNameApproximateNumberOfMessages)},
	})
	metrics.ObserveUpstream("count_messages", started, err)
	if err != nil {
		return 0, translate("count messages", name, err)
	}
	raw, ok := output.Attributes[sqs.QueueAttributeNameApproximateNumberOfMessages]
	if !ok || raw == nil {
		return 0, fmt.Errorf("count messages %s: %w: attribute missing from response", name, ErrUpstream)
	}
	count, err := strconv.ParseInt(*raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("count messages %s: %w: %v", name, ErrUpstream, err)
	}
	return count, nil
}

// SendMessage writes one message and returns its id.
func (q *AWSQueue) SendMessage(ctx context.Context, name string, body string) (string, error) {
	url, err := q.queueURL(ctx, name)
	if err != nil {
		return "", err
	}
	msg := &sqs.SendMessageInput{
		MessageBody: aws.String(body),
		QueueUrl:    aws.String(url),
	}
	if IsFIFO(name) {
		msg.MessageGroupId = aws.String(fifoMessageGroup)
		msg.MessageDeduplicationId = aws.String(uuid.New().String())
	}
	started := time.Now()
	sendResponse, err := q.queue.SendMessageWithContext(ctx, msg)
	metrics.ObserveUpstream("send_message", started, err)
	if err != nil {
		return "", translate("send message", name, err)
	}
	id := aws.StringValue(sendResponse.MessageId)
	log.WithFields(log.Fields{
		"event": "send_message",
		"queue": name,
	}).Debug(id)
	return id, nil
}

// ReceiveMessage fetches at most one message without deleting it.
func (q *AWSQueue) ReceiveMessage(ctx context.Context, name string) (*RecvMessage, error) {
	url, err := q.queueURL(ctx, name)
	if err != nil {
		return nil, err
	}
	started := time.Now()
	receiveResponse, err := q.queue.ReceiveMessageWithContext(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(url),
		MaxNumberOfMessages: aws.Int64(1),
		WaitTimeSeconds:     aws.Int64(int64(q.cfg.ReadWaitSeconds)),
	})
	metrics.ObserveUpstream("receive_message", started, err)
	if err != nil {
		return nil, translate("receive message", name, err)
	}
	if len(receiveResponse.Messages) == 0 {
		return nil, ErrNoMessages
	}
	received := receiveResponse.Messages[0]
	msg := &RecvMessage{
		ID:       aws.StringValue(received.MessageId),
		Body:     aws.StringValue(received.Body),
		Handler:  aws.StringValue(received.ReceiptHandle),
		QueueURL: url,
	}
	log.WithFields(log.Fields{
		"event": "receive_message",
		"queue": name,
	}).Debug(msg.ID)
	return msg, nil
}

// Acknowledge deletes a received message.
func (q *AWSQueue) Acknowledge(ctx context.Context, message *RecvMessage) error {
	started := time.Now()
	_, err := q.queue.DeleteMessageWithContext(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(message.QueueURL),
		ReceiptHandle: aws.String(message.Handler),
	})
	metrics.ObserveUpstream("delete_message", started, err)
	if err != nil {
		return translate("delete message", path.Base(message.QueueURL), err)
	}
	log.WithFields(log.Fields{
		"event": "delete_message",
		"queue": path.Base(message.QueueURL),
	}).Debug(message.ID)
	return nil
}

func (q *AWSQueue) queueURL(ctx context.Context, name string) (string, error) {
	started := time.Now()
	output, err := q.queue.GetQueueUrlWithContext(ctx, &sqs.GetQueueUrlInput{
		QueueName: aws.String(name),
	})
	metrics.ObserveUpstream("get_queue_url", started, err)
	if err != nil {
		return "", translate("resolve queue", name, err)
	}
	return aws.StringValue(output.QueueUrl), nil
}

// translate maps queue service error codes onto the package's sentinel errors,
// keeping the SDK error in the chain.
func translate(op, name string, err error) error {
	if name != "" {
		op = op + " " + name
	}
	var aerr awserr.Error
	if !errors.As(err, &aerr) {
		return fmt.Errorf("%s: %w: %w", op, ErrUpstream, err)
	}
	switch aerr.Code() {
	case sqs.ErrCodeQueueDoesNotExist, "QueueDoesNotExist":
		return fmt.Errorf("%s: %w: %w", op, ErrQueueNotFound, err)
	case sqs.ErrCodeQueueNameExists:
		return fmt.Errorf("%s: %w: %w", op, ErrQueueExists, err)
	case sqs.ErrCodeQueueDeletedRecently:
		return fmt.Errorf("%s: %w: %w", op, ErrQueueDeletedRecently, err)
	case "InvalidParameterValue", "InvalidAttributeName", "InvalidAttributeValue", "MissingParameter":
		return fmt.Errorf("%s: %w: %w", op, ErrInvalidParameter, err)
	case request.CanceledErrorCode:
		return fmt.Errorf("%s: %w: %w", op, context.Canceled, err)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrUpstream, err)
}
