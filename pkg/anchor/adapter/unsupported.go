package adapter

import (
	"context"
)

// UnimplementedBinding is a nil object for bindings that only provide part of the contract.
// Embed it and override the methods the database supports.
type UnimplementedBinding struct{}

func (UnimplementedBinding) TryConnect(ctx context.Context, uri string, notifier Notifier) error {
	return &NotImplementedError{Operation: "tryConnect"}
}

func (UnimplementedBinding) AfterConnect(ctx context.Context) error {
	return &NotImplementedError{Operation: "afterConnect"}
}

func (UnimplementedBinding) Library() (any, error) {
	return nil, &NotImplementedError{Operation: "getLibrary"}
}

func (UnimplementedBinding) RegisterValue(schema any, collection string, collectionName string) (any, error) {
	return nil, &NotImplementedError{Operation: "registerValue"}
}

func (UnimplementedBinding) Connection() any {
	return nil
}

func (UnimplementedBinding) Close(ctx context.Context) error {
	return nil
}

var _ Binding = UnimplementedBinding{}
