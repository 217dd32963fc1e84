package services

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"golang.org/x/sync/semaphore"
)

const (
	ChannelSMS      = "sms"
	ChannelWhatsApp = "whatsapp"
	ChannelConsole  = "console"

	whatsAppPrefix = "whatsapp:"
)

// Dispatcher sends one reminder message to the configured destination. It never retries.
type Dispatcher interface {
	Send(ctx context.Context, message string) error
}

// channelNamer is implemented by dispatchers that know which channel they deliver on.
type channelNamer interface {
	Channel() string
}

func channelOf(d Dispatcher) string {
	if n, ok := d.(channelNamer); ok {
		return n.Channel()
	}
	return ""
}

// messageCreator is the subset of the Twilio v2010 API used here.
type messageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

type TwilioDispatcher struct {
	api  messageCreator
	from string
	to   string
}

type TwilioParams struct {
	AccountSID     string
	AuthToken      string
	PhoneNumber    string
	WhatsAppNumber string
	To             string
	// Timeout bounds each Twilio HTTP request; zero keeps the client default.
	Timeout time.Duration
}

func NewTwilioDispatcher(p TwilioParams) *TwilioDispatcher {
	return newTwilioDispatcher(newTwilioClient(p).Api, p)
}

func newTwilioClient(p TwilioParams) *twilio.RestClient {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: p.AccountSID,
		Password: p.AuthToken,
	})
	// CreateMessage takes no context, so the HTTP client timeout is the only bound
	if p.Timeout > 0 {
		client.SetTimeout(p.Timeout)
	}
	return client
}

func newTwilioDispatcher(api messageCreator, p TwilioParams) *TwilioDispatcher {
	from := p.PhoneNumber
	// WhatsApp destinations need a WhatsApp sender
	if strings.HasPrefix(p.To, whatsAppPrefix) {
		from = whatsAppPrefix + p.WhatsAppNumber
	}
	return &TwilioDispatcher{api: api, from: from, to: p.To}
}

func (d *TwilioDispatcher) Channel() string {
	if strings.HasPrefix(d.to, whatsAppPrefix) {
		return ChannelWhatsApp
	}
	return ChannelSMS
}

func (d *TwilioDispatcher) Send(ctx context.Context, message string) error {
	if err := ctx.Err(); err != nil {
		return &DispatchError{Cause: err}
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(d.to)
	params.SetFrom(d.from)
	params.SetBody(message)

	resp, err := d.api.CreateMessage(params)
	if err != nil {
		return &DispatchError{Cause: err}
	}
	if resp != nil && resp.Sid != nil {
		log.Printf("[DISPATCH] message sent to %s, SID: %s", d.to, *resp.Sid)
	} else {
		log.Printf("[DISPATCH] message sent to %s, but no SID returned", d.to)
	}
	return nil
}

// ConsoleDispatcher only logs; used when Twilio is not configured.
type ConsoleDispatcher struct{}

func (ConsoleDispatcher) Channel() string { return ChannelConsole }

func (ConsoleDispatcher) Send(_ context.Context, message string) error {
	log.Printf("[DISPATCH] %s", message)
	return nil
}

// LimitedDispatcher bounds the number of concurrent outbound sends.
type LimitedDispatcher struct {
	next Dispatcher
	sem  *semaphore.Weighted
}

func NewLimitedDispatcher(next Dispatcher, limit int) *LimitedDispatcher {
	if limit < 1 {
		limit = 1
	}
	return &LimitedDispatcher{next: next, sem: semaphore.NewWeighted(int64(limit))}
}

func (d *LimitedDispatcher) Channel() string { return channelOf(d.next) }

func (d *LimitedDispatcher) Send(ctx context.Context, message string) error {
	if err := d.sem.Acquire(ctx, 1); err != nil {
		return &DispatchError{Cause: err}
	}
	defer d.sem.Release(1)

	err := d.next.Send(ctx, message)
	var dispatchErr *DispatchError
	if err != nil && !errors.As(err, &dispatchErr) {
		return &DispatchError{Cause: err}
	}
	return err
}
