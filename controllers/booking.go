// controllers/booking.go
package controllers

import (
	"errors"
	"log"
	"net/http"
	"time"

	"shiftbook-backend/events"
	"shiftbook-backend/models"
	"shiftbook-backend/services"
	"shiftbook-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BookingController struct {
	DB        *gorm.DB
	Scheduler *services.ShiftScheduler
	Logs      *services.ReminderLogStore
	Events    events.Publisher
}

// CreateBookingInput defines the expected JSON structure
type CreateBookingInput struct {
	Phone      string `json:"phone" binding:"required"`
	ShiftStart string `json:"shiftStart" binding:"required"`
}

type ReminderView struct {
	State  string     `json:"state"` // pending, fired, sent, failed, cancelled, none
	FireAt *time.Time `json:"fireAt,omitempty"`
	SentAt *time.Time `json:"sentAt,omitempty"`
	Error  string     `json:"error,omitempty"`
}

type BookingResponse struct {
	Booking           models.Booking `json:"booking"`
	ReminderScheduled bool           `json:"reminderScheduled"`
	Reminder          *ReminderView  `json:"reminder,omitempty"`
	Warning           string         `json:"warning,omitempty"`
}

// CreateBooking stores the booking and schedules its reminder.
// A reminder that cannot be scheduled does not fail the booking.
func (bc *BookingController) CreateBooking(c *gin.Context) {
	var input CreateBookingInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	if !utils.ValidatePhone(input.Phone) {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid phone number format")
		return
	}
	shiftStart, err := utils.ParseShiftStart(input.ShiftStart)
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid shiftStart: expected RFC 3339 timestamp")
		return
	}

	booking := models.Booking{
		Phone:      utils.NormalizePhone(input.Phone),
		ShiftStart: shiftStart,
	}
	if err := bc.DB.WithContext(c.Request.Context()).Create(&booking).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to create booking")
		return
	}

	resp := BookingResponse{Booking: booking}
	job, err := bc.Scheduler.Schedule(booking.ID, booking.Phone, booking.ShiftStart)
	if err != nil {
		log.Printf("Booking %s saved without reminder: %v", booking.ID, err)
		resp.Warning = "Booking saved but reminder was not scheduled: " + err.Error()
	} else {
		fireAt := job.FireAt
		resp.ReminderScheduled = true
		resp.Reminder = &ReminderView{State: services.JobPending.String(), FireAt: &fireAt}
	}

	events.Publish(c.Request.Context(), bc.Events, events.RKBookingCreated, events.BookingCreated{
		BookingID:         booking.ID.String(),
		ShiftStart:        booking.ShiftStart,
		ReminderScheduled: resp.ReminderScheduled,
	})

	c.JSON(http.StatusCreated, resp)
}

// GetBookings lists bookings, optionally for one UTC day (?date=YYYY-MM-DD)
func (bc *BookingController) GetBookings(c *gin.Context) {
	query := bc.DB.WithContext(c.Request.Context()).Order("shift_start ASC")

	if day := c.Query("date"); day != "" {
		start, end, err := utils.DayRange(day)
		if err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid date format, expected YYYY-MM-DD")
			return
		}
		query = query.Where("shift_start >= ? AND shift_start < ?", start, end)
	}

	var bookings []models.Booking
	if err := query.Find(&bookings).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve bookings")
		return
	}

	c.JSON(http.StatusOK, bookings)
}

// GetBooking returns a booking with the state of its reminder
func (bc *BookingController) GetBooking(c *gin.Context) {
	bookingUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid booking ID format")
		return
	}

	var booking models.Booking
	if err := bc.DB.WithContext(c.Request.Context()).First(&booking, "id = ?", bookingUUID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Booking not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}

	resp := BookingResponse{Booking: booking}
	if job, registered := bc.Scheduler.Lookup(booking.ID); registered {
		// a fired job stays registered until its dispatch returns
		switch state := job.State(); state {
		case services.JobPending, services.JobFired:
			fireAt := job.FireAt
			resp.ReminderScheduled = state == services.JobPending
			resp.Reminder = &ReminderView{State: state.String(), FireAt: &fireAt}
			c.JSON(http.StatusOK, resp)
			return
		}
	}

	resp.Reminder = &ReminderView{State: "none"}
	if bc.Logs != nil {
		entry, err := bc.Logs.Latest(c.Request.Context(), booking.ID)
		switch {
		case err == nil:
			sentAt := entry.SentAt
			resp.Reminder = &ReminderView{State: entry.Status, SentAt: &sentAt, Error: entry.ErrorMessage}
		case !errors.Is(err, gorm.ErrRecordNotFound):
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
			return
		}
	}

	c.JSON(http.StatusOK, resp)
}

// CancelReminder stops a booking's pending reminder
func (bc *BookingController) CancelReminder(c *gin.Context) {
	bookingUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid booking ID format")
		return
	}

	if !bc.Scheduler.Cancel(bookingUUID) {
		utils.RespondWithError(c, http.StatusNotFound, "No pending reminder for this booking")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Reminder cancelled successfully"})
}
