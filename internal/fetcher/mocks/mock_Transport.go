// Package mocks provides test doubles for the fetcher transport.
package mocks

import (
	"context"
	"net/url"

	mock "github.com/stretchr/testify/mock"
	"github.com/tidwall/gjson"
)

// MockTransport is a mock type for the Transport interface.
type MockTransport struct {
	mock.Mock
}

// FetchText provides a mock function with given fields: ctx, rawURL, params
func (_m *MockTransport) FetchText(ctx context.Context, rawURL string, params url.Values) (string, error) {
	ret := _m.Called(ctx, rawURL, params)

	if len(ret) == 0 {
		panic("no return value specified for FetchText")
	}

	var r0 string
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string, url.Values) (string, error)); ok {
		return rf(ctx, rawURL, params)
	}
	if rf, ok := ret.Get(0).(func(context.Context, string, url.Values) string); ok {
		r0 = rf(ctx, rawURL, params)
	} else {
		r0 = ret.Get(0).(string)
	}

	if rf, ok := ret.Get(1).(func(context.Context, string, url.Values) error); ok {
		r1 = rf(ctx, rawURL, params)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// FetchJSON provides a mock function with given fields: ctx, rawURL, params
func (_m *MockTransport) FetchJSON(ctx context.Context, rawURL string, params url.Values) (gjson.Result, error) {
	ret := _m.Called(ctx, rawURL, params)

	if len(ret) == 0 {
		panic("no return value specified for FetchJSON")
	}

	var r0 gjson.Result
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string, url.Values) (gjson.Result, error)); ok {
		return rf(ctx, rawURL, params)
	}
	if rf, ok := ret.Get(0).(func(context.Context, string, url.Values) gjson.Result); ok {
		r0 = rf(ctx, rawURL, params)
	} else {
		r0 = ret.Get(0).(gjson.Result)
	}

	if rf, ok := ret.Get(1).(func(context.Context, string, url.Values) error); ok {
		r1 = rf(ctx, rawURL, params)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewMockTransport creates a new instance of MockTransport. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockTransport(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockTransport {
	m := &MockTransport{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
