package controllers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"shiftbook-backend/controllers"
	"shiftbook-backend/events"
	"shiftbook-backend/models"
	"shiftbook-backend/services"
	"shiftbook-backend/services/test/mocks"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var now = time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

type bookingEnv struct {
	router     *gin.Engine
	db         *gorm.DB
	clock      *mocks.FakeClock
	dispatcher *mocks.MockDispatcher
	publisher  *mocks.MockPublisher
	scheduler  *services.ShiftScheduler
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, models.AutoMigrate(db))
	return db
}

func newBookingEnv(t *testing.T) *bookingEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	env := &bookingEnv{
		db:         newTestDB(t),
		clock:      mocks.NewFakeClock(now),
		dispatcher: mocks.NewMockDispatcher(),
		publisher:  mocks.NewMockPublisher(),
	}
	logs := services.NewReminderLogStore(env.db)
	env.scheduler = services.NewShiftScheduler(services.NewJobRegistry(), env.dispatcher, env.clock, 30*time.Minute,
		services.WithReminderRecorder(logs),
		services.WithEventPublisher(env.publisher),
	)
	t.Cleanup(env.scheduler.Stop)

	bc := &controllers.BookingController{DB: env.db, Scheduler: env.scheduler, Logs: logs, Events: env.publisher}
	r := gin.New()
	r.POST("/api/bookings", bc.CreateBooking)
	r.GET("/api/bookings", bc.GetBookings)
	r.GET("/api/bookings/:id", bc.GetBooking)
	r.DELETE("/api/bookings/:id/reminder", bc.CancelReminder)
	env.router = r
	return env
}

func (env *bookingEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

func (env *bookingEnv) create(t *testing.T, phone, shiftStart string) controllers.BookingResponse {
	t.Helper()
	w := env.do(t, http.MethodPost, "/api/bookings", gin.H{"phone": phone, "shiftStart": shiftStart})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[controllers.BookingResponse](t, w)
}

func TestCreateBooking_SchedulesReminder(t *testing.T) {
	env := newBookingEnv(t)

	resp := env.create(t, "+1 555-010-0000", "2026-10-18T14:00:00Z")

	assert.NotEqual(t, uuid.Nil, resp.Booking.ID)
	assert.Equal(t, "+15550100000", resp.Booking.Phone)
	assert.True(t, resp.ReminderScheduled)
	assert.Empty(t, resp.Warning)
	require.NotNil(t, resp.Reminder)
	assert.Equal(t, "pending", resp.Reminder.State)
	require.NotNil(t, resp.Reminder.FireAt)
	assert.True(t, resp.Reminder.FireAt.Equal(now.Add(90*time.Minute)))

	var stored models.Booking
	require.NoError(t, env.db.First(&stored, "id = ?", resp.Booking.ID).Error)
	assert.True(t, stored.ShiftStart.Equal(now.Add(2*time.Hour)))
	assert.Contains(t, env.publisher.Keys(), events.RKBookingCreated)

	env.clock.Advance(90 * time.Minute)
	msgs := env.dispatcher.Messages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "+15550100000")
}

func TestCreateBooking_OffsetIsNormalizedToUTC(t *testing.T) {
	env := newBookingEnv(t)

	resp := env.create(t, "+15550100", "2026-10-18T19:30:00+05:30")

	assert.True(t, resp.Booking.ShiftStart.Equal(now.Add(2*time.Hour)))
	require.NotNil(t, resp.Reminder)
	assert.True(t, resp.Reminder.FireAt.Equal(now.Add(90*time.Minute)))
}

func TestCreateBooking_InvalidInput(t *testing.T) {
	env := newBookingEnv(t)

	tests := []struct {
		name string
		body any
	}{
		{"missing phone", gin.H{"shiftStart": "2026-10-18T14:00:00Z"}},
		{"bad phone", gin.H{"phone": "call me", "shiftStart": "2026-10-18T14:00:00Z"}},
		{"missing shiftStart", gin.H{"phone": "+15550100"}},
		{"shiftStart without offset", gin.H{"phone": "+15550100", "shiftStart": "2026-10-18 14:00"}},
		{"not json", "nope"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, "/api/bookings", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.NotEmpty(t, decode[map[string]string](t, w)["error"])
		})
	}

	var count int64
	require.NoError(t, env.db.Model(&models.Booking{}).Count(&count).Error)
	assert.Zero(t, count)
	assert.Empty(t, env.dispatcher.Messages())
}

func TestCreateBooking_SchedulingFailureIsAWarning(t *testing.T) {
	env := newBookingEnv(t)
	env.scheduler.Stop()

	resp := env.create(t, "+15550100", "2026-10-18T14:00:00Z")

	assert.False(t, resp.ReminderScheduled)
	assert.Contains(t, resp.Warning, "reminder was not scheduled")
	assert.Nil(t, resp.Reminder)

	var count int64
	require.NoError(t, env.db.Model(&models.Booking{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestCreateBooking_InsideLeadTimeNotifiesImmediately(t *testing.T) {
	env := newBookingEnv(t)

	resp := env.create(t, "+15550100", "2026-10-18T12:10:00Z")
	assert.True(t, resp.ReminderScheduled)

	select {
	case msg := <-env.dispatcher.Sent():
		assert.Contains(t, msg, "+15550100")
	case <-time.After(2 * time.Second):
		t.Fatal("reminder was not dispatched")
	}
}

func TestGetBooking_ReportsReminderState(t *testing.T) {
	env := newBookingEnv(t)
	created := env.create(t, "+15550100", "2026-10-18T14:00:00Z")
	path := "/api/bookings/" + created.Booking.ID.String()

	w := env.do(t, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[controllers.BookingResponse](t, w)
	assert.Equal(t, created.Booking.ID, resp.Booking.ID)
	assert.Equal(t, "pending", resp.Reminder.State)

	env.clock.Advance(90 * time.Minute)

	w = env.do(t, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp = decode[controllers.BookingResponse](t, w)
	assert.False(t, resp.ReminderScheduled)
	assert.Equal(t, models.ReminderSent, resp.Reminder.State)
	require.NotNil(t, resp.Reminder.SentAt)
}

func TestGetBooking_ReportsFiredWhileDispatching(t *testing.T) {
	env := newBookingEnv(t)
	created := env.create(t, "+15550100", "2026-10-18T14:00:00Z")
	path := "/api/bookings/" + created.Booking.ID.String()

	var during controllers.BookingResponse
	env.dispatcher.OnSend = func(string) {
		w := env.do(t, http.MethodGet, path, nil)
		require.Equal(t, http.StatusOK, w.Code)
		during = decode[controllers.BookingResponse](t, w)
	}

	env.clock.Advance(90 * time.Minute)

	require.NotNil(t, during.Reminder)
	assert.Equal(t, "fired", during.Reminder.State)
	assert.False(t, during.ReminderScheduled)
	require.NotNil(t, during.Reminder.FireAt)
	assert.True(t, during.Reminder.FireAt.Equal(now.Add(90*time.Minute)))
}

func TestGetBooking_NotFoundAndBadID(t *testing.T) {
	env := newBookingEnv(t)

	w := env.do(t, http.MethodGet, "/api/bookings/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodGet, "/api/bookings/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetBookings_FiltersByDay(t *testing.T) {
	env := newBookingEnv(t)
	env.create(t, "+15550101", "2026-10-19T09:00:00Z")
	env.create(t, "+15550102", "2026-10-19T23:30:00Z")
	env.create(t, "+15550103", "2026-10-20T00:00:00Z")

	w := env.do(t, http.MethodGet, "/api/bookings?date=2026-10-19", nil)
	require.Equal(t, http.StatusOK, w.Code)
	bookings := decode[[]models.Booking](t, w)
	require.Len(t, bookings, 2)
	assert.Equal(t, "+15550101", bookings[0].Phone)
	assert.Equal(t, "+15550102", bookings[1].Phone)

	w = env.do(t, http.MethodGet, "/api/bookings", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.Booking](t, w), 3)

	w = env.do(t, http.MethodGet, "/api/bookings?date=19-10-2026", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCancelReminder(t *testing.T) {
	env := newBookingEnv(t)
	created := env.create(t, "+15550100", "2026-10-18T14:00:00Z")
	path := "/api/bookings/" + created.Booking.ID.String()

	w := env.do(t, http.MethodDelete, path+"/reminder", nil)
	require.Equal(t, http.StatusOK, w.Code)

	env.clock.Advance(3 * time.Hour)
	assert.Empty(t, env.dispatcher.Messages())

	w = env.do(t, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.ReminderCancelled, decode[controllers.BookingResponse](t, w).Reminder.State)

	w = env.do(t, http.MethodDelete, path+"/reminder", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
