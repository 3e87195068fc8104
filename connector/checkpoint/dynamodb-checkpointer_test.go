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
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"
	"github.com/stretchr/testify/assert"

	"github.com/openfda-labs/go-fda-connector/connector/endpoints"
	"github.com/openfda-labs/go-fda-connector/connector/interfaces"
	"github.com/openfda-labs/go-fda-connector/logger"
)

func newDynamoUnderTest(svc dynamodbiface.DynamoDBAPI) *DynamoCheckpointer {
	return NewDynamoCheckpointer("FDACheckpoints", "us-west-2", logger.GetDefaultLogger()).
		WithDynamoDB(svc)
}

func TestDoesTableExist(t *testing.T) {
	svc := &mockDynamoDB{tableExist: true, items: map[string]map[string]*dynamodb.AttributeValue{}}
	checkpointer := newDynamoUnderTest(svc)
	if !checkpointer.doesTableExist() {
		t.Error("Table exists but returned false")
	}

	checkpointer.svc = &mockDynamoDB{tableExist: false}
	if checkpointer.doesTableExist() {
		t.Error("Table does not exist but returned true")
	}
}

func TestInitCreatesMissingTable(t *testing.T) {
	svc := &mockDynamoDB{tableExist: false, items: map[string]map[string]*dynamodb.AttributeValue{}}
	checkpointer := newDynamoUnderTest(svc)
	assert.NoError(t, checkpointer.Init())
	assert.True(t, svc.tableCreated)
}

func TestSaveAndFetchCheckpoint(t *testing.T) {
	svc := &mockDynamoDB{tableExist: true, items: map[string]map[string]*dynamodb.AttributeValue{}}
	checkpointer := newDynamoUnderTest(svc)
	assert.NoError(t, checkpointer.Init())

	err := checkpointer.SaveCheckpoint(endpoints.DrugAdverseEvents, interfaces.State{Skip: 1200})
	assert.NoError(t, err)

	state, err := checkpointer.FetchCheckpoint(endpoints.DrugAdverseEvents)
	assert.NoError(t, err)
	assert.Equal(t, 1200, state.Skip)
}

func TestFetchCheckpointNotFound(t *testing.T) {
	svc := &mockDynamoDB{tableExist: true, items: map[string]map[string]*dynamodb.AttributeValue{}}
	checkpointer := newDynamoUnderTest(svc)
	assert.NoError(t, checkpointer.Init())

	_, err := checkpointer.FetchCheckpoint(endpoints.FoodRecalls)
	assert.True(t, errors.Is(err, ErrCheckpointNotFound))
}

func TestRemoveCheckpoint(t *testing.T) {
	svc := &mockDynamoDB{tableExist: true, items: map[string]map[string]*dynamodb.AttributeValue{}}
	checkpointer := newDynamoUnderTest(svc)
	assert.NoError(t, checkpointer.Init())

	assert.NoError(t, checkpointer.SaveCheckpoint(endpoints.DrugRecalls, interfaces.State{Skip: 42}))
	assert.NoError(t, checkpointer.RemoveCheckpoint(endpoints.DrugRecalls))

	_, err := checkpointer.FetchCheckpoint(endpoints.DrugRecalls)
	assert.True(t, errors.Is(err, ErrCheckpointNotFound))
}

func TestCheckpointsAreIndependentPerEndpoint(t *testing.T) {
	svc := &mockDynamoDB{tableExist: true, items: map[string]map[string]*dynamodb.AttributeValue{}}
	checkpointer := newDynamoUnderTest(svc)
	assert.NoError(t, checkpointer.Init())

	assert.NoError(t, checkpointer.SaveCheckpoint(endpoints.DrugAdverseEvents, interfaces.State{Skip: 100}))
	assert.NoError(t, checkpointer.SaveCheckpoint(endpoints.FoodRecalls, interfaces.State{Skip: 7}))

	state, err := checkpointer.FetchCheckpoint(endpoints.FoodRecalls)
	assert.NoError(t, err)
	assert.Equal(t, 7, state.Skip)
}

type mockDynamoDB struct {
	dynamodbiface.DynamoDBAPI
	tableExist   bool
	tableCreated bool
	items        map[string]map[string]*dynamodb.AttributeValue
}

func (m *mockDynamoDB) DescribeTable(*dynamodb.DescribeTableInput) (*dynamodb.DescribeTableOutput, error) {
	if !m.tableExist {
		return &dynamodb.DescribeTableOutput{}, awserr.New(dynamodb.ErrCodeResourceNotFoundException, "doesNotExist", errors.New(""))
	}
	return &dynamodb.DescribeTableOutput{}, nil
}

func (m *mockDynamoDB) CreateTable(input *dynamodb.CreateTableInput) (*dynamodb.CreateTableOutput, error) {
	m.tableCreated = true
	return &dynamodb.CreateTableOutput{}, nil
}

func (m *mockDynamoDB) PutItem(input *dynamodb.PutItemInput) (*dynamodb.PutItemOutput, error) {
	key := aws.StringValue(input.Item[EndpointKeyKey].S)
	m.items[key] = input.Item
	return nil, nil
}

func (m *mockDynamoDB) GetItem(input *dynamodb.GetItemInput) (*dynamodb.GetItemOutput, error) {
	key := aws.StringValue(input.Key[EndpointKeyKey].S)
	return &dynamodb.GetItemOutput{
		Item: m.items[key],
	}, nil
}

func (m *mockDynamoDB) DeleteItem(input *dynamodb.DeleteItemInput) (*dynamodb.DeleteItemOutput, error) {
	key := aws.StringValue(input.Key[EndpointKeyKey].S)
	delete(m.items, key)
	return &dynamodb.DeleteItemOutput{}, nil
}
