// Package assert provides minimal test assertion helpers. No test in the
// repository imports it; barn's tests use plain testing or testify/require.
package assert

import (
	"reflect"
	"testing"
)

// Equal logs an error if expected and actual are not equal.
func Equal(t *testing.T, expected, actual any) {
	if expected == nil && actual != nil {
		t.Errorf("Expected: %v, Actual: %v", expected, actual)
	} else if expected != nil && actual == nil {
		t.Errorf("Expected: %v, Actual: %v", expected, actual)
	} else if expected == nil && actual == nil {
		return
	} else if !reflect.DeepEqual(expected, actual) {
		t.Errorf("Expected: %v, Actual: %v", expected, actual)
	}
}

// NotEqual logs an error if expected and actual are equal.
func NotEqual(t *testing.T, expected, actual any) {
	if expected == nil && actual != nil {
		t.Errorf("Expected: %v, Actual: %v", expected, actual)
	} else if expected != nil && actual == nil {
		t.Errorf("Expected: %v, Actual: %v", expected, actual)
	} else if expected == nil && actual == nil {
		t.Errorf("Expected: %v, Actual: %v", expected, actual)
	} else if reflect.DeepEqual(expected, actual) {
		t.Errorf("Expected: %v, Actual: %v", expected, actual)
	}
}

// True logs an error if condition is false.
func True(t *testing.T, condition bool) {
	if !condition {
		t.Errorf("Expected: true, Actual: false")
	}
}

// False logs an error if condition is true.
func False(t *testing.T, condition bool) {
	if condition {
		t.Errorf("Expected: false, Actual: true")
	}
}

// Nil logs an error if value is not nil.
func Nil(t *testing.T, value any) {
	if value != nil {
		t.Errorf("Expected: nil, Actual: %v", value)
	}
}

// NotNil logs an error if value is nil.
func NotNil(t *testing.T, value any) {
	if value == nil {
		t.Errorf("Expected: not nil, Actual: nil")
	}
}

// Error logs an error if err is nil.
func Error(t *testing.T, err error) {
	if err == nil {
		t.Errorf("Expected: error, Actual: nil")
	}
}

// NoError logs an error if err is not nil.
func NoError(t *testing.T, err error) {
	if err != nil {
		t.Errorf("Expected: no error, Actual: %v", err)
	}
}
