// Package queuetest provides an in-memory stand-in for the SQS API.
package queuetest

import (
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/sqs"
	"github.com/aws/aws-sdk-go/service/sqs/sqsiface"
)

// URLPrefix is prepended to queue names to form queue URLs.
const URLPrefix = "https://sqs.eu-west-1.amazonaws.com/123456789012/"

// maxListResults is the most queue URLs SQS returns from one ListQueues call.
const maxListResults = 1000

type message struct {
	id       string
	body     string
	receipt  string
	inFlight bool
}

type fakeQueue struct {
	attributes map[string]string
	messages   []*message
}

// SQS implements the subset of sqsiface.SQSAPI the gateway calls. Calling any
// other method panics on the nil embedded interface.
type SQS struct {
	sqsiface.SQSAPI

	mu     sync.Mutex
	queues map[string]*fakeQueue
	seq    int
	// Errors forces the named operation (e.g. "SendMessage") to fail.
	Errors map[string]error
	// Calls counts invocations per operation.
	Calls map[string]int
	// PageSize splits ListQueues output into pages when positive.
	PageSize int
	// LastList, LastCreate, LastSend and LastReceive keep the most recent inputs.
	LastList    *sqs.ListQueuesInput
	LastCreate  *sqs.CreateQueueInput
	LastSend    *sqs.SendMessageInput
	LastReceive *sqs.ReceiveMessageInput
}

// New ...
func New() *SQS {
	return &SQS{
		queues: map[string]*fakeQueue{},
		Errors: map[string]error{},
		Calls:  map[string]int{},
	}
}

// NotFound is the error SQS returns for unknown queues.
func NotFound() error {
	return awserr.New(sqs.ErrCodeQueueDoesNotExist, "The specified queue does not exist for this wsdl version.", nil)
}

// Messages returns the bodies currently stored in name, in flight or not.
func (f *SQS) Messages(name string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	q, ok := f.queues[name]
	if !ok {
		return nil
	}
	bodies := make([]string, 0, len(q.messages))
	for _, m := range q.messages {
		bodies = append(bodies, m.body)
	}
	return bodies
}

// Attributes returns a copy of the attributes name was created with.
func (f *SQS) Attributes(name string) map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	q, ok := f.queues[name]
	if !ok {
		return nil
	}
	out := make(map[string]string, len(q.attributes))
	for k, v := range q.attributes {
		out[k] = v
	}
	return out
}

func (f *SQS) call(op string) error {
	f.Calls[op]++
	return f.Errors[op]
}

func (f *SQS) lookup(url *string) (*fakeQueue, error) {
	name := aws.StringValue(url)
	if len(name) > len(URLPrefix) {
		name = name[len(URLPrefix):]
	}
	q, ok := f.queues[name]
	if !ok {
		return nil, NotFound()
	}
	return q, nil
}

// ListQueuesWithContext pages like SQS: without MaxResults the answer is cut
// at 1000 URLs and carries no NextToken.
func (f *SQS) ListQueuesWithContext(_ aws.Context, input *sqs.ListQueuesInput, _ ...request.Option) (*sqs.ListQueuesOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.LastList = input
	if err := f.call("ListQueues"); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(f.queues))
	for name := range f.queues {
		names = append(names, name)
	}
	sort.Strings(names)
	start := 0
	if token := aws.StringValue(input.NextToken); token != "" {
		start, _ = strconv.Atoi(token)
	}
	pageSize := maxListResults
	if input.MaxResults != nil {
		pageSize = int(*input.MaxResults)
	}
	if f.PageSize > 0 && f.PageSize < pageSize {
		pageSize = f.PageSize
	}
	end := len(names)
	if start+pageSize < end {
		end = start + pageSize
	}
	output := &sqs.ListQueuesOutput{}
	for _, name := range names[start:end] {
		output.QueueUrls = append(output.QueueUrls, aws.String(URLPrefix+name))
	}
	if end < len(names) && input.MaxResults != nil {
		output.NextToken = aws.String(strconv.Itoa(end))
	}
	return output, nil
}

// CreateQueueWithContext ...
func (f *SQS) CreateQueueWithContext(_ aws.Context, input *sqs.CreateQueueInput, _ ...request.Option) (*sqs.CreateQueueOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.LastCreate = input
	if err := f.call("CreateQueue"); err != nil {
		return nil, err
	}
	name := aws.StringValue(input.QueueName)
	attributes := map[string]string{}
	for k, v := range input.Attributes {
		attributes[k] = aws.StringValue(v)
	}
	if existing, ok := f.queues[name]; ok {
		if fmt.Sprint(existing.attributes) != fmt.Sprint(attributes) {
			return nil, awserr.New(sqs.ErrCodeQueueNameExists, "A queue already exists with the same name and a different value for attribute VisibilityTimeout", nil)
		}
	} else {
		f.queues[name] = &fakeQueue{attributes: attributes}
	}
	return &sqs.CreateQueueOutput{QueueUrl: aws.String(URLPrefix + name)}, nil
}

// GetQueueUrlWithContext ...
func (f *SQS) GetQueueUrlWithContext(_ aws.Context, input *sqs.GetQueueUrlInput, _ ...request.Option) (*sqs.GetQueueUrlOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("GetQueueUrl"); err != nil {
		return nil, err
	}
	name := aws.StringValue(input.QueueName)
	if _, ok := f.queues[name]; !ok {
		return nil, NotFound()
	}
	return &sqs.GetQueueUrlOutput{QueueUrl: aws.String(URLPrefix + name)}, nil
}

// DeleteQueueWithContext ...
func (f *SQS) DeleteQueueWithContext(_ aws.Context, input *sqs.DeleteQueueInput, _ ...request.Option) (*sqs.DeleteQueueOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("DeleteQueue"); err != nil {
		return nil, err
	}
	if _, err := f.lookup(input.QueueUrl); err != nil {
		return nil, err
	}
	delete(f.queues, aws.StringValue(input.QueueUrl)[len(URLPrefix):])
	return &sqs.DeleteQueueOutput{}, nil
}

// GetQueueAttributesWithContext answers ApproximateNumberOfMessages with the visible message count.
func (f *SQS) GetQueueAttributesWithContext(_ aws.Context, input *sqs.GetQueueAttributesInput, _ ...request.Option) (*sqs.GetQueueAttributesOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("GetQueueAttributes"); err != nil {
		return nil, err
	}
	q, err := f.lookup(input.QueueUrl)
	if err != nil {
		return nil, err
	}
	visible := 0
	for _, m := range q.messages {
		if !m.inFlight {
			visible++
		}
	}
	return &sqs.GetQueueAttributesOutput{
		Attributes: map[string]*string{
			sqs.QueueAttributeNameApproximateNumberOfMessages: aws.String(strconv.Itoa(visible)),
		},
	}, nil
}

// SendMessageWithContext ...
func (f *SQS) SendMessageWithContext(_ aws.Context, input *sqs.SendMessageInput, _ ...request.Option) (*sqs.SendMessageOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.LastSend = input
	if err := f.call("SendMessage"); err != nil {
		return nil, err
	}
	q, err := f.lookup(input.QueueUrl)
	if err != nil {
		return nil, err
	}
	f.seq++
	m := &message{
		id:   fmt.Sprintf("msg-%d", f.seq),
		body: aws.StringValue(input.MessageBody),
	}
	q.messages = append(q.messages, m)
	return &sqs.SendMessageOutput{MessageId: aws.String(m.id)}, nil
}

// ReceiveMessageWithContext hands out the oldest visible message and hides it.
func (f *SQS) ReceiveMessageWithContext(_ aws.Context, input *sqs.ReceiveMessageInput, _ ...request.Option) (*sqs.ReceiveMessageOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.LastReceive = input
	if err := f.call("ReceiveMessage"); err != nil {
		return nil, err
	}
	q, err := f.lookup(input.QueueUrl)
	if err != nil {
		return nil, err
	}
	output := &sqs.ReceiveMessageOutput{}
	for _, m := range q.messages {
		if m.inFlight {
			continue
		}
		f.seq++
		m.inFlight = true
		m.receipt = fmt.Sprintf("receipt-%d", f.seq)
		output.Messages = append(output.Messages, &sqs.Message{
			MessageId:     aws.String(m.id),
			Body:          aws.String(m.body),
			ReceiptHandle: aws.String(m.receipt),
		})
		break
	}
	return output, nil
}

// DeleteMessageWithContext ...
func (f *SQS) DeleteMessageWithContext(_ aws.Context, input *sqs.DeleteMessageInput, _ ...request.Option) (*sqs.DeleteMessageOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("DeleteMessage"); err != nil {
		return nil, err
	}
	q, err := f.lookup(input.QueueUrl)
	if err != nil {
		return nil, err
	}
	for i, m := range q.messages {
		if m.receipt != "" && m.receipt == aws.StringValue(input.ReceiptHandle) {
			q.messages = append(q.messages[:i], q.messages[i+1:]...)
			return &sqs.DeleteMessageOutput{}, nil
		}
	}
	return nil, awserr.New(sqs.ErrCodeReceiptHandleIsInvalid, "The input receipt handle is invalid.", nil)
}

// Release makes every in-flight message in name visible again, as if its
// visibility timeout expired.
func (f *SQS) Release(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if q, ok := f.queues[name]; ok {
		for _, m := range q.messages {
			m.inFlight = false
		}
	}
}
