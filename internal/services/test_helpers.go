package services

import (
	"github.com/stretchr/testify/mock"
)

// MockBroadcaster is a mock for the ProgressBroadcaster interface
type MockBroadcaster struct {
	mock.Mock
}

func (m *MockBroadcaster) BroadcastProgressWithTrace(stage string, percent int, message, traceID string) {
	m.Called(stage, percent, message, traceID)
}

func (m *MockBroadcaster) BroadcastError(code, message, details, stage string, recoverable bool) {
	m.Called(code, message, details, stage, recoverable)
}

func (m *MockBroadcaster) BroadcastAnalysisComplete(datasetID, name string, rows, columns int) {
	m.Called(datasetID, name, rows, columns)
}

func (m *MockBroadcaster) BroadcastDatasetUpdate(action, datasetID, name string) {
	m.Called(action, datasetID, name)
}
