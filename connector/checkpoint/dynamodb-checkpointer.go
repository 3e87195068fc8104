/*
 * Copyright (c) 2024 openFDA Labs
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy of this software and
 * associated documentation files (the "Software"), to deal in the Software without restriction, including
 * without limitation the rights to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is furnished to do
 * so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all copies or substantial
 * portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR IMPLIED, INCLUDING BUT
 * NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT.
 * IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY,
 * WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN CONNECTION WITH THE
 * SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
 */
package checkpoint

import (
	"math"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/client"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"
	"github.com/matryer/try"

	"github.com/openfda-labs/go-fda-connector/connector/interfaces"
	"github.com/openfda-labs/go-fda-connector/logger"
)

const (
	// NumMaxRetries is the max times of doing retry
	NumMaxRetries = 10

	defaultReadCapacity  = 1
	defaultWriteCapacity = 1
)

// DynamoCheckpointer implements the Checkpointer interface using DynamoDB
// as a backend. The table is keyed by endpoint, one item per endpoint.
type DynamoCheckpointer struct {
	log           logger.Logger
	TableName     string
	Retries       int
	region        string
	endpoint      string
	readCapacity  int64
	writeCapacity int64
	svc           dynamodbiface.DynamoDBAPI
}

func NewDynamoCheckpointer(tableName, region string, log logger.Logger) *DynamoCheckpointer {
	return &DynamoCheckpointer{
		log:           log,
		TableName:     tableName,
		Retries:       NumMaxRetries,
		region:        region,
		readCapacity:  defaultReadCapacity,
		writeCapacity: defaultWriteCapacity,
	}
}

// WithDynamoDB is used to provide DynamoDB service
func (checkpointer *DynamoCheckpointer) WithDynamoDB(svc dynamodbiface.DynamoDBAPI) *DynamoCheckpointer {
	checkpointer.svc = svc
	return checkpointer
}

// WithEndpoint overrides the DynamoDB endpoint, mainly for local testing.
func (checkpointer *DynamoCheckpointer) WithEndpoint(endpoint string) *DynamoCheckpointer {
	checkpointer.endpoint = endpoint
	return checkpointer
}

// Init initialises the DynamoDB Checkpointer, creating the table if needed
func (checkpointer *DynamoCheckpointer) Init() error {
	checkpointer.log.Infof("Creating DynamoDB session")

	s, err := session.NewSession(&aws.Config{
		Region:   aws.String(checkpointer.region),
		Endpoint: aws.String(checkpointer.endpoint),
		Retryer: client.DefaultRetryer{
			NumMaxRetries:    checkpointer.Retries,
			MinRetryDelay:    client.DefaultRetryerMinRetryDelay,
			MinThrottleDelay: client.DefaultRetryerMinThrottleDelay,
			MaxRetryDelay:    client.DefaultRetryerMaxRetryDelay,
			MaxThrottleDelay: client.DefaultRetryerMaxRetryDelay,
		},
	})

	if err != nil {
		// no need to move forward
		checkpointer.log.Fatalf("Failed in getting DynamoDB session for checkpointing: %+v", err)
	}

	if checkpointer.svc == nil {
		checkpointer.svc = dynamodb.New(s)
	}

	if !checkpointer.doesTableExist() {
		return checkpointer.createTable()
	}
	return nil
}

// FetchCheckpoint retrieves the saved state for the given endpoint
func (checkpointer *DynamoCheckpointer) FetchCheckpoint(endpointKey string) (interfaces.State, error) {
	item, err := checkpointer.getItem(endpointKey)
	if err != nil {
		return interfaces.State{}, err
	}

	skipValue, ok := item[SkipKey]
	if !ok || skipValue.N == nil {
		return interfaces.State{}, ErrCheckpointNotFound
	}

	skip, err := strconv.Atoi(aws.StringValue(skipValue.N))
	if err != nil {
		return interfaces.State{}, err
	}
	checkpointer.log.Debugf("Retrieved checkpoint for %v. Skip: %d", endpointKey, skip)
	return interfaces.State{Skip: skip}, nil
}

// SaveCheckpoint persists the state for the given endpoint
func (checkpointer *DynamoCheckpointer) SaveCheckpoint(endpointKey string, state interfaces.State) error {
	marshalledCheckpoint := map[string]*dynamodb.AttributeValue{
		EndpointKeyKey: {
			S: aws.String(endpointKey),
		},
		SkipKey: {
			N: aws.String(strconv.Itoa(state.Skip)),
		},
		UpdatedAtKey: {
			S: aws.String(time.Now().UTC().Format(time.RFC3339)),
		},
	}
	return checkpointer.saveItem(marshalledCheckpoint)
}

// RemoveCheckpoint deletes the saved state, forcing a full resync
func (checkpointer *DynamoCheckpointer) RemoveCheckpoint(endpointKey string) error {
	return checkpointer.removeItem(endpointKey)
}

func (checkpointer *DynamoCheckpointer) createTable() error {
	input := &dynamodb.CreateTableInput{
		AttributeDefinitions: []*dynamodb.AttributeDefinition{
			{
				AttributeName: aws.String(EndpointKeyKey),
				AttributeType: aws.String("S"),
			},
		},
		KeySchema: []*dynamodb.KeySchemaElement{
			{
				AttributeName: aws.String(EndpointKeyKey),
				KeyType:       aws.String("HASH"),
			},
		},
		ProvisionedThroughput: &dynamodb.ProvisionedThroughput{
			ReadCapacityUnits:  aws.Int64(checkpointer.readCapacity),
			WriteCapacityUnits: aws.Int64(checkpointer.writeCapacity),
		},
		TableName: aws.String(checkpointer.TableName),
	}
	_, err := checkpointer.svc.CreateTable(input)
	return err
}

func (checkpointer *DynamoCheckpointer) doesTableExist() bool {
	input := &dynamodb.DescribeTableInput{
		TableName: aws.String(checkpointer.TableName),
	}
	_, err := checkpointer.svc.DescribeTable(input)
	return err == nil
}

func (checkpointer *DynamoCheckpointer) saveItem(item map[string]*dynamodb.AttributeValue) error {
	return try.Do(func(attempt int) (bool, error) {
		_, err := checkpointer.svc.PutItem(&dynamodb.PutItemInput{
			TableName: aws.String(checkpointer.TableName),
			Item:      item,
		})
		if awsErr, ok := err.(awserr.Error); ok {
			if awsErr.Code() == dynamodb.ErrCodeProvisionedThroughputExceededException {
				// Backoff time as recommended by https://docs.aws.amazon.com/general/latest/gr/api-retries.html
				time.Sleep(time.Duration(math.Exp2(float64(attempt))*100) * time.Millisecond)
			}
		}
		return attempt < checkpointer.Retries, err
	})
}

func (checkpointer *DynamoCheckpointer) getItem(endpointKey string) (map[string]*dynamodb.AttributeValue, error) {
	item, err := checkpointer.svc.GetItem(&dynamodb.GetItemInput{
		TableName: aws.String(checkpointer.TableName),
		Key: map[string]*dynamodb.AttributeValue{
			EndpointKeyKey: {
				S: aws.String(endpointKey),
			},
		},
	})
	return item.Item, err
}

func (checkpointer *DynamoCheckpointer) removeItem(endpointKey string) error {
	_, err := checkpointer.svc.DeleteItem(&dynamodb.DeleteItemInput{
		TableName: aws.String(checkpointer.TableName),
		Key: map[string]*dynamodb.AttributeValue{
			EndpointKeyKey: {
				S: aws.String(endpointKey),
			},
		},
	})
	return err
}
