// Copyright 2026 Sonic Labs
// This file is part of Figaro Contract Coverage Infrastructure for Sonic
//
// Figaro is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Figaro is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with Figaro. If not, see <http://www.gnu.org/licenses/>.

// Package covdb is a generated GoMock package.
package covdb

import (
	reflect "reflect"

	cover "github.com/0xsoniclabs/figaro/cover"
	gomock "go.uber.org/mock/gomock"
)

// MockCoverageDB is a mock of CoverageDB interface.
type MockCoverageDB struct {
	ctrl     *gomock.Controller
	recorder *MockCoverageDBMockRecorder
	isgomock struct{}
}

// MockCoverageDBMockRecorder is the mock recorder for MockCoverageDB.
type MockCoverageDBMockRecorder struct {
	mock *MockCoverageDB
}

// NewMockCoverageDB creates a new mock instance.
func NewMockCoverageDB(ctrl *gomock.Controller) *MockCoverageDB {
	mock := &MockCoverageDB{ctrl: ctrl}
	mock.recorder = &MockCoverageDBMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockCoverageDB) EXPECT() *MockCoverageDBMockRecorder {
	return m.recorder
}

// Add mocks base method.
func (m *MockCoverageDB) Add(data CoverageData) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Add", data)
	ret0, _ := ret[0].(error)
	return ret0
}

// Add indicates an expected call of Add.
func (mr *MockCoverageDBMockRecorder) Add(data any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Add", reflect.TypeOf((*MockCoverageDB)(nil).Add), data)
}

// AddRollup mocks base method.
func (m *MockCoverageDB) AddRollup(rollup map[string][]*cover.DeclarationCoverage) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "AddRollup", rollup)
	ret0, _ := ret[0].(error)
	return ret0
}

// AddRollup indicates an expected call of AddRollup.
func (mr *MockCoverageDBMockRecorder) AddRollup(rollup any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "AddRollup", reflect.TypeOf((*MockCoverageDB)(nil).AddRollup), rollup)
}

// Close mocks base method.
func (m *MockCoverageDB) Close() error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Close")
	ret0, _ := ret[0].(error)
	return ret0
}

// Close indicates an expected call of Close.
func (mr *MockCoverageDBMockRecorder) Close() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Close", reflect.TypeOf((*MockCoverageDB)(nil).Close))
}

// DeleteRun mocks base method.
func (m *MockCoverageDB) DeleteRun(run int64) (int64, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "DeleteRun", run)
	ret0, _ := ret[0].(int64)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// DeleteRun indicates an expected call of DeleteRun.
func (mr *MockCoverageDBMockRecorder) DeleteRun(run any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "DeleteRun", reflect.TypeOf((*MockCoverageDB)(nil).DeleteRun), run)
}

// Flush mocks base method.
func (m *MockCoverageDB) Flush() error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Flush")
	ret0, _ := ret[0].(error)
	return ret0
}

// Flush indicates an expected call of Flush.
func (mr *MockCoverageDBMockRecorder) Flush() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Flush", reflect.TypeOf((*MockCoverageDB)(nil).Flush))
}

// Run mocks base method.
func (m *MockCoverageDB) Run() int64 {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Run")
	ret0, _ := ret[0].(int64)
	return ret0
}

// Run indicates an expected call of Run.
func (mr *MockCoverageDBMockRecorder) Run() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Run", reflect.TypeOf((*MockCoverageDB)(nil).Run))
}

// SetCheckpoint mocks base method.
func (m *MockCoverageDB) SetCheckpoint(block uint64) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "SetCheckpoint", block)
	ret0, _ := ret[0].(error)
	return ret0
}

// SetCheckpoint indicates an expected call of SetCheckpoint.
func (mr *MockCoverageDBMockRecorder) SetCheckpoint(block any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "SetCheckpoint", reflect.TypeOf((*MockCoverageDB)(nil).SetCheckpoint), block)
}
