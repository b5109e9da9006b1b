package services

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// SmsSender delivers a referral code by SMS. Failure is reported as a
// boolean and must never crash the caller.
type SmsSender interface {
	Send(ctx context.Context, phoneNumber, name, referralCode string) bool
}

var titleCaser = cases.Title(language.English)

// smsBody builds the message sent to the referrer.
func smsBody(name, referralCode, businessName string) string {
	first := name
	if i := strings.IndexByte(first, ' '); i > 0 {
		first = first[:i]
	}
	greeting := titleCaser.String(strings.ToLower(first))

	return fmt.Sprintf(
		"Hi %s! Your referral code is %s 🎉\n\n"+
			"Tell your friend to mention it when they DM us.\n"+
			"You'll both get 10%% off!\n\n"+
			"- %s",
		greeting, referralCode, businessName)
}

// TwilioSmsSender sends through the Twilio REST API.
type TwilioSmsSender struct {
	client       *twilio.RestClient
	fromNumber   string
	businessName string
}

func NewTwilioSmsSender(accountSid, authToken, fromNumber, businessName string) *TwilioSmsSender {
	return &TwilioSmsSender{
		client: twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: accountSid,
			Password: authToken,
		}),
		fromNumber:   fromNumber,
		businessName: businessName,
	}
}

func (t *TwilioSmsSender) Send(_ context.Context, phoneNumber, name, referralCode string) bool {
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(phoneNumber)
	params.SetFrom(t.fromNumber)
	params.SetBody(smsBody(name, referralCode, t.businessName))

	msg, err := t.client.Api.CreateMessage(params)
	if err != nil {
		log.Printf("Failed to send SMS to %s: %v", phoneNumber, err)
		return false
	}

	sid := ""
	if msg.Sid != nil {
		sid = *msg.Sid
	}
	log.Printf("SMS sent to %s, SID: %s", phoneNumber, sid)

	return msg.Status == nil || *msg.Status != "failed"
}

// MockSmsSender logs the message instead of sending it. Used when
// USE_MOCK_SERVICES is set.
type MockSmsSender struct {
	BusinessName string
}

func (m *MockSmsSender) Send(_ context.Context, phoneNumber, name, referralCode string) bool {
	log.Printf("Mock SMS to %s (SID %s): %q", phoneNumber, uuid.New().String(),
		smsBody(name, referralCode, m.BusinessName))
	return true
}
