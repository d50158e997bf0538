package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const whatsappPrefix = "whatsapp:"

type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

type TwilioConfig struct {
	AccountSID  string
	AuthToken   string
	PhoneNumber string
	BaseURL     string
}

// TwilioNotifier sends WhatsApp messages through the Twilio Messages API.
type TwilioNotifier struct {
	client Doer
	cfg    TwilioConfig
}

func NewTwilioNotifier(client Doer, cfg TwilioConfig) *TwilioNotifier {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.twilio.com"
	}
	return &TwilioNotifier{client: client, cfg: cfg}
}

func (n *TwilioNotifier) Name() string { return "twilio" }

type twilioError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (n *TwilioNotifier) Send(ctx context.Context, recipient, body string) error {
	form := url.Values{}
	form.Set("From", whatsappAddress(n.cfg.PhoneNumber))
	form.Set("To", whatsappAddress(recipient))
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", n.cfg.BaseURL, url.PathEscape(n.cfg.AccountSID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.SetBasicAuth(n.cfg.AccountSID, n.cfg.AuthToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("twilio request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var te twilioError
		if json.Unmarshal(raw, &te) == nil && te.Message != "" {
			return fmt.Errorf("twilio status %d: code %d: %s", resp.StatusCode, te.Code, te.Message)
		}
		return fmt.Errorf("twilio status %d", resp.StatusCode)
	}
	return nil
}

func whatsappAddress(number string) string {
	if strings.HasPrefix(number, whatsappPrefix) {
		return number
	}
	return whatsappPrefix + number
}
