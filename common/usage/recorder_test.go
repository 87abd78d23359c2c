// Copyright 2025 CallWeave
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package usage

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestRecordCallMinutes(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	// 2m05s inbound ecommerce standard = 3 minutes * 9c = 27c
	mock.ExpectExec("INSERT INTO usage_events").
		WithArgs("client-1", "call-1", "ecommerce", "inbound", 125, 27, "gw-1").
		WillReturnResult(sqlmock.NewResult(1, 1))

	recorder := NewUsageRecorder(db)
	err = recorder.RecordCallMinutes(CallMinutesEvent{
		ClientID:        "client-1",
		CallID:          "call-1",
		Sector:          "ecommerce",
		Plan:            "standard",
		Direction:       "inbound",
		DurationSeconds: 125,
		InstanceID:      "gw-1",
	})
	if err != nil {
		t.Errorf("RecordCallMinutes returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestRecordAPICall(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("INSERT INTO usage_events").
		WithArgs("client-1", "gw-1", "GET", "/api/v1/teams", 200, int64(12)).
		WillReturnResult(sqlmock.NewResult(1, 1))

	recorder := NewUsageRecorder(db)
	err = recorder.RecordAPICall(APICallEvent{
		ClientID:       "client-1",
		InstanceID:     "gw-1",
		HTTPMethod:     "GET",
		HTTPPath:       "/api/v1/teams",
		HTTPStatusCode: 200,
		LatencyMs:      12,
	})
	if err != nil {
		t.Errorf("RecordAPICall returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
