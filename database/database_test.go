package database

import (
	"database/sql"
	"errors"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jknair0/beforeeach"

	"crop-advisor-service/models"
)

var (
	db   *sql.DB
	mock sqlmock.Sqlmock
)

func setUp() {
	db, mock, _ = sqlmock.New()
}

func tearDown() {
	db.Close()
}

var it = beforeeach.Create(setUp, tearDown)

func TestSaveCropRecord(t *testing.T) {
	it(func() {
		d := NewDatabaseFromConn(db)
		p := models.Prediction{
			CropType:   "Tomato",
			Condition:  "Late Blight (Phytophthora infestans)",
			Confidence: 0.87,
			ImageURL:   "data:image/png;base64,AAAA",
			Timestamp:  1700000000000,
		}

		// The stored condition is stripped of its parenthetical suffix and
		// the data URI is replaced with a stable placeholder reference.
		mock.ExpectExec("INSERT INTO crop_data \\(user_id, ts, crop_type, crop_condition, image_url, confidence\\) VALUES \\((.+), (.+), (.+), (.+), (.+), (.+)\\)").
			WithArgs("user-1", p.Timestamp, "Tomato", "Late Blight", "https://placehold.co/600x400.png?text=crop-1700000000000", p.Confidence).
			WillReturnResult(sqlmock.NewResult(1, 1))

		if err := d.SaveCropRecord("user-1", p); err != nil {
			t.Errorf("SaveCropRecord returned error: %v", err)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
	})
}

func TestSaveCropRecordSkipsAnonymous(t *testing.T) {
	it(func() {
		d := NewDatabaseFromConn(db)

		if err := d.SaveCropRecord("", models.Prediction{Timestamp: 1}); err != nil {
			t.Errorf("anonymous save should be a no-op, got %v", err)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("no statement should run for anonymous users: %v", err)
		}
	})
}

func TestSaveCropRecordPropagatesWriteFailure(t *testing.T) {
	it(func() {
		d := NewDatabaseFromConn(db)

		mock.ExpectExec("INSERT INTO crop_data (.+)").
			WillReturnError(errors.New("connection reset"))

		if err := d.SaveCropRecord("user-1", models.Prediction{Timestamp: 1}); err == nil {
			t.Error("expected an error from a failed write")
		}
	})
}

func TestLogAction(t *testing.T) {
	it(func() {
		d := NewDatabaseFromConn(db)

		mock.ExpectExec("INSERT INTO history \\(user_id, action_type, ts, details\\) VALUES \\((.+), (.+), (.+), (.+)\\)").
			WithArgs("user-1", "diagnosis", int64(1700000000000), "Tomato: Late Blight (87%)").
			WillReturnResult(sqlmock.NewResult(1, 1))

		if err := d.LogAction("user-1", "diagnosis", 1700000000000, "Tomato: Late Blight (87%)"); err != nil {
			t.Errorf("LogAction returned error: %v", err)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
	})
}

func TestGetPredictionHistoryNewestFirst(t *testing.T) {
	it(func() {
		d := NewDatabaseFromConn(db)

		rows := sqlmock.NewRows([]string{"id", "user_id", "ts", "crop_type", "crop_condition", "image_url", "confidence"}).
			AddRow("3", "user-1", int64(300), "Tomato", "Late Blight", "https://img/3", 0.9).
			AddRow("2", "user-1", int64(200), "Rice", "Blast", "https://img/2", 0.7).
			AddRow("1", "user-1", int64(100), "Wheat", "Healthy", "https://img/1", 0.95)

		mock.ExpectQuery("SELECT id, user_id, ts, crop_type, crop_condition, image_url, confidence FROM crop_data WHERE user_id = (.+) ORDER BY ts DESC LIMIT (.+)").
			WithArgs("user-1", 20).
			WillReturnRows(rows)

		items, err := d.GetPredictionHistory("user-1", 20)
		if err != nil {
			t.Fatalf("GetPredictionHistory returned error: %v", err)
		}
		if len(items) != 3 {
			t.Fatalf("expected 3 items, got %d", len(items))
		}
		for i, wantTS := range []int64{300, 200, 100} {
			if items[i].Timestamp != wantTS {
				t.Errorf("item %d: expected ts %d, got %d", i, wantTS, items[i].Timestamp)
			}
		}
	})
}

func TestGetPredictionHistoryEmptyResult(t *testing.T) {
	it(func() {
		d := NewDatabaseFromConn(db)

		mock.ExpectQuery("SELECT id, user_id, ts, crop_type, crop_condition, image_url, confidence FROM crop_data (.+)").
			WithArgs("user-2", 20).
			WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "ts", "crop_type", "crop_condition", "image_url", "confidence"}))

		items, err := d.GetPredictionHistory("user-2", 20)
		if err != nil {
			t.Fatalf("GetPredictionHistory returned error: %v", err)
		}
		if items == nil || len(items) != 0 {
			t.Errorf("expected empty, non-nil slice, got %#v", items)
		}
	})
}

func TestGetActivityLog(t *testing.T) {
	it(func() {
		d := NewDatabaseFromConn(db)

		rows := sqlmock.NewRows([]string{"id", "user_id", "action_type", "ts", "details"}).
			AddRow("2", "user-1", "diagnosis", int64(200), "Rice: Blast (70%)").
			AddRow("1", "user-1", "diagnosis", int64(100), nil)

		mock.ExpectQuery("SELECT id, user_id, action_type, ts, details FROM history WHERE user_id = (.+) ORDER BY ts DESC LIMIT (.+)").
			WithArgs("user-1", 50).
			WillReturnRows(rows)

		records, err := d.GetActivityLog("user-1", 50)
		if err != nil {
			t.Fatalf("GetActivityLog returned error: %v", err)
		}
		if len(records) != 2 {
			t.Fatalf("expected 2 records, got %d", len(records))
		}
		if records[0].Details != "Rice: Blast (70%)" {
			t.Errorf("unexpected details %q", records[0].Details)
		}
		if records[1].Details != "" {
			t.Errorf("NULL details should read as empty string, got %q", records[1].Details)
		}
	})
}

func TestUnreadyStoreDegrades(t *testing.T) {
	var d *Database

	items, err := d.GetPredictionHistory("user-1", 20)
	if err != nil || len(items) != 0 {
		t.Errorf("unready reads must yield empty results, got %v %v", items, err)
	}
	records, err := d.GetActivityLog("user-1", 50)
	if err != nil || len(records) != 0 {
		t.Errorf("unready reads must yield empty results, got %v %v", records, err)
	}
	if err := d.SaveCropRecord("user-1", models.Prediction{}); !errors.Is(err, ErrNoCredentials) {
		t.Errorf("unready writes must report ErrNoCredentials, got %v", err)
	}
	if err := d.Close(); err != nil {
		t.Errorf("closing an unready store must be a no-op, got %v", err)
	}
}

func TestNormalizeCondition(t *testing.T) {
	cases := map[string]string{
		"Late Blight (Phytophthora infestans)": "Late Blight",
		"Healthy":                              "Healthy",
		"  Leaf Rust ":                         "Leaf Rust",
		"":                                     "",
	}
	for in, want := range cases {
		if got := normalizeCondition(in); got != want {
			t.Errorf("normalizeCondition(%q) = %q, want %q", in, got, want)
		}
	}
}
