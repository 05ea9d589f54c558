package vonage

import (
	"bytes"
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	defaultAPIURL = "https://api.nexmo.com"
	tokenTTL      = 15 * time.Minute
)

type ClientConfig struct {
	ApplicationID string
	PrivateKey    *rsa.PrivateKey
	APIURL        string
	HTTPClient    *http.Client
}

// Client calls the Vonage Voice REST API with application JWTs.
type Client struct {
	cfg ClientConfig
	now func() time.Time
}

func NewClient(cfg ClientConfig) (*Client, error) {
	if strings.TrimSpace(cfg.ApplicationID) == "" {
		return nil, fmt.Errorf("vonage: application id is required")
	}
	if cfg.PrivateKey == nil {
		return nil, fmt.Errorf("vonage: private key is required")
	}
	if strings.TrimSpace(cfg.APIURL) == "" {
		cfg.APIURL = defaultAPIURL
	}
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{cfg: cfg, now: time.Now}, nil
}

// LoadPrivateKey reads a PEM encoded RSA key from path.
func LoadPrivateKey(path string) (*rsa.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("vonage: read private key: %w", err)
	}
	key, err := jwt.ParseRSAPrivateKeyFromPEM(data)
	if err != nil {
		return nil, fmt.Errorf("vonage: parse private key: %w", err)
	}
	return key, nil
}

type phone struct {
	Type   string `json:"type"`
	Number string `json:"number"`
}

type createCallRequest struct {
	To        []phone  `json:"to"`
	From      phone    `json:"from"`
	AnswerURL []string `json:"answer_url"`
}

// CallInfo is the API response for a created call.
type CallInfo struct {
	UUID             string `json:"uuid"`
	Status           string `json:"status"`
	Direction        string `json:"direction"`
	ConversationUUID string `json:"conversation_uuid"`
}

// CreateCall places an outbound call from one number to another. Vonage
// fetches the answer NCCO from answerURL once the callee picks up.
func (c *Client) CreateCall(ctx context.Context, to, from, answerURL string) (CallInfo, error) {
	body, err := json.Marshal(createCallRequest{
		To:        []phone{{Type: "phone", Number: to}},
		From:      phone{Type: "phone", Number: from},
		AnswerURL: []string{answerURL},
	})
	if err != nil {
		return CallInfo{}, err
	}
	token, err := c.applicationToken()
	if err != nil {
		return CallInfo{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.APIURL+"/v1/calls", bytes.NewReader(body))
	if err != nil {
		return CallInfo{}, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return CallInfo{}, fmt.Errorf("vonage: create call: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return CallInfo{}, fmt.Errorf("vonage: create call: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	var info CallInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return CallInfo{}, fmt.Errorf("vonage: decode call: %w", err)
	}
	return info, nil
}

func (c *Client) applicationToken() (string, error) {
	now := c.now()
	claims := jwt.MapClaims{
		"application_id": c.cfg.ApplicationID,
		"iat":            now.Unix(),
		"exp":            now.Add(tokenTTL).Unix(),
		"jti":            uuid.NewString(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(c.cfg.PrivateKey)
	if err != nil {
		return "", fmt.Errorf("vonage: sign application token: %w", err)
	}
	return signed, nil
}
