package evolution

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	coreconfig "github.com/AzielCF/az-wabridge/core/config"
	"github.com/AzielCF/az-wabridge/domains/gateway"
	"github.com/AzielCF/az-wabridge/pkg/chatmedia"
	pkgError "github.com/AzielCF/az-wabridge/pkg/error"
	"github.com/AzielCF/az-wabridge/pkg/utils"
	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
)

// --- CONFIG ---

const (
	textTimeout    = 10 * time.Second
	mediaTimeout   = 30 * time.Second
	stateTimeout   = 5 * time.Second
	groupsTimeout  = 15 * time.Second
	pictureTimeout = 10 * time.Second

	sendDelayMs = 1200

	smallBodyLimit   = 1 << 20
	groupsBodyLimit  = 8 << 20
	mediaBodyLimit   = 64 << 20
	pictureBodyLimit = 10 << 20

	errorBodyPreview = 512
)

// Per-call deadlines come from the request context.
var httpClient = &http.Client{Timeout: 2 * mediaTimeout}

// Client talks to one Evolution API instance. Configuration is read from
// the source on every call.
type Client struct {
	source gateway.ConfigSource
}

func NewClient(source gateway.ConfigSource) *Client {
	return &Client{source: source}
}

var _ gateway.IGatewayClient = (*Client)(nil)

func (c *Client) config(ctx context.Context) (gateway.Config, error) {
	cfg, err := c.source.GatewayConfig(ctx)
	if err != nil {
		return gateway.Config{}, err
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	cfg.Token = strings.TrimSpace(cfg.Token)
	if strings.TrimSpace(cfg.InstanceName) == "" {
		cfg.InstanceName = coreconfig.DefaultInstanceName
	}
	if !cfg.Complete() {
		return cfg, pkgError.ConfigurationError("Evolution API is not configured. Please check settings.")
	}
	return cfg, nil
}

func endpoint(cfg gateway.Config, path string) string {
	return cfg.BaseURL + path + "/" + url.PathEscape(cfg.InstanceName)
}

// --- SEND ---

type textPayload struct {
	Number      string `json:"number"`
	Text        string `json:"text"`
	Delay       int    `json:"delay"`
	LinkPreview bool   `json:"linkPreview"`
}

// legacyTextPayload is the shape accepted by Evolution API v1.
type legacyTextPayload struct {
	Number      string `json:"number"`
	TextMessage struct {
		Text string `json:"text"`
	} `json:"textMessage"`
	Options struct {
		Delay    int    `json:"delay"`
		Presence string `json:"presence"`
	} `json:"options"`
}

type mediaPayload struct {
	Number    string `json:"number"`
	MediaType string `json:"mediatype"`
	MimeType  string `json:"mimetype"`
	Caption   string `json:"caption"`
	Media     string `json:"media"`
	FileName  string `json:"fileName"`
}

func (c *Client) SendText(ctx context.Context, phone, text string) (gateway.SendResult, error) {
	cfg, err := c.config(ctx)
	if err != nil {
		return gateway.SendResult{}, err
	}

	number := utils.NormalizeRecipient(phone)
	target := endpoint(cfg, "/message/sendText")

	status, body, err := jsonRequest(ctx, http.MethodPost, target, cfg.Token, textPayload{
		Number: number, Text: text, Delay: sendDelayMs,
	}, textTimeout, smallBodyLimit)
	if err == nil && status == http.StatusBadRequest {
		logrus.Warnf("[EVOLUTION] sendText to %s rejected (400), retrying with textMessage payload", number)
		legacy := legacyTextPayload{Number: number}
		legacy.TextMessage.Text = text
		legacy.Options.Delay = sendDelayMs
		legacy.Options.Presence = "composing"
		status, body, err = jsonRequest(ctx, http.MethodPost, target, cfg.Token, legacy, textTimeout, smallBodyLimit)
	}
	if err != nil {
		logrus.WithError(err).Errorf("[EVOLUTION] sendText to %s failed", number)
		return gateway.SendResult{}, pkgError.TransportError(fmt.Sprintf("sendText failed: %v", err))
	}
	if !isSuccess(status) {
		logrus.Errorf("[EVOLUTION] sendText to %s failed: status=%d body=%s", number, status, preview(body))
		return gateway.SendResult{}, pkgError.TransportError(fmt.Sprintf("sendText failed: status=%d body=%s", status, preview(body)))
	}
	return decodeSendResult(body), nil
}

func (c *Client) SendMedia(ctx context.Context, req gateway.MediaRequest) (gateway.SendResult, error) {
	cfg, err := c.config(ctx)
	if err != nil {
		return gateway.SendResult{}, err
	}

	number := utils.NormalizeRecipient(req.Phone)
	kind := req.Kind
	if kind == "" {
		kind = gateway.MediaKind(chatmedia.KindForMime(req.MimeType))
	}
	payload := mediaPayload{
		Number:    number,
		MediaType: string(kind),
		MimeType:  req.MimeType,
		Caption:   req.Caption,
		Media:     chatmedia.StripDataURI(req.Base64),
		FileName:  req.FileName,
	}

	logrus.Debugf("[EVOLUTION] sending %s %q (%s) to %s", kind, req.FileName,
		humanize.Bytes(uint64(base64.StdEncoding.DecodedLen(len(payload.Media)))), number)

	status, body, err := jsonRequest(ctx, http.MethodPost, endpoint(cfg, "/message/sendMedia"), cfg.Token, payload, mediaTimeout, smallBodyLimit)
	if err != nil {
		logrus.WithError(err).Errorf("[EVOLUTION] sendMedia to %s failed", number)
		return gateway.SendResult{}, pkgError.TransportError(fmt.Sprintf("sendMedia failed: %v", err))
	}
	if !isSuccess(status) {
		logrus.Errorf("[EVOLUTION] sendMedia to %s failed: status=%d body=%s", number, status, preview(body))
		return gateway.SendResult{}, pkgError.TransportError(fmt.Sprintf("sendMedia failed: status=%d body=%s", status, preview(body)))
	}
	return decodeSendResult(body), nil
}

// --- FETCH ---

func (c *Client) FetchMediaBase64(ctx context.Context, envelope json.RawMessage) string {
	cfg, err := c.config(ctx)
	if err != nil {
		logrus.WithError(err).Warn("[EVOLUTION] cannot fetch media")
		return ""
	}

	payload := struct {
		Message      json.RawMessage `json:"message"`
		ConvertToMp4 bool            `json:"convertToMp4"`
	}{Message: envelope}

	status, body, err := jsonRequest(ctx, http.MethodPost, endpoint(cfg, "/chat/getBase64FromMediaMessage"), cfg.Token, payload, mediaTimeout, mediaBodyLimit)
	if err != nil {
		logrus.WithError(err).Error("[EVOLUTION] getBase64FromMediaMessage failed")
		return ""
	}
	if !isSuccess(status) {
		logrus.Errorf("[EVOLUTION] getBase64FromMediaMessage failed: status=%d body=%s", status, preview(body))
		return ""
	}
	return decodeMediaBase64(body)
}

func (c *Client) FetchProfilePicture(ctx context.Context, jid string) string {
	cfg, err := c.config(ctx)
	if err != nil {
		return ""
	}

	status, body, err := jsonRequest(ctx, http.MethodPost, endpoint(cfg, "/chat/fetchProfilePictureUrl"), cfg.Token,
		map[string]string{"number": jid}, pictureTimeout, smallBodyLimit)
	if err != nil {
		logrus.WithError(err).Warnf("[EVOLUTION] fetchProfilePictureUrl for %s failed", jid)
		return ""
	}
	if !isSuccess(status) {
		logrus.Debugf("[EVOLUTION] no profile picture for %s: status=%d", jid, status)
		return ""
	}

	pictureURL := decodeProfilePictureURL(body)
	if pictureURL == "" {
		return ""
	}

	content, err := download(ctx, pictureURL)
	if err != nil {
		logrus.WithError(err).Warnf("[EVOLUTION] failed to download profile picture for %s", jid)
		return ""
	}
	return base64.StdEncoding.EncodeToString(content)
}

func (c *Client) FetchAllGroups(ctx context.Context) []gateway.Group {
	cfg, err := c.config(ctx)
	if err != nil {
		logrus.WithError(err).Warn("[EVOLUTION] cannot fetch groups")
		return []gateway.Group{}
	}

	target := endpoint(cfg, "/group/fetchAllGroups") + "?getParticipants=false"
	status, body, err := jsonRequest(ctx, http.MethodGet, target, cfg.Token, nil, groupsTimeout, groupsBodyLimit)
	if err != nil {
		logrus.WithError(err).Error("[EVOLUTION] fetchAllGroups failed")
		return []gateway.Group{}
	}
	if status != http.StatusOK {
		logrus.Errorf("[EVOLUTION] fetchAllGroups failed: status=%d body=%s", status, preview(body))
		return []gateway.Group{}
	}
	return decodeGroups(body)
}

// --- CONNECTION ---

func (c *Client) TestConnection(ctx context.Context) gateway.ConnectionResult {
	cfg, err := c.config(ctx)
	if err != nil {
		var cfgErr pkgError.ConfigurationError
		if errors.As(err, &cfgErr) {
			return gateway.ConnectionResult{Message: "Missing URL or Token in settings."}
		}
		return gateway.ConnectionResult{Message: fmt.Sprintf("Connection Failed: %v", err)}
	}

	status, body, err := jsonRequest(ctx, http.MethodGet, endpoint(cfg, "/instance/connectionState"), cfg.Token, nil, stateTimeout, smallBodyLimit)
	if err != nil {
		return gateway.ConnectionResult{Message: fmt.Sprintf("Connection Failed: %v", err)}
	}

	switch status {
	case http.StatusOK:
		return gateway.ConnectionResult{
			Success: true,
			Message: fmt.Sprintf("Connection Successful! Instance State: %s", decodeConnectionState(body)),
		}
	case http.StatusNotFound:
		return gateway.ConnectionResult{Message: fmt.Sprintf("Instance \"%s\" not found (404).", cfg.InstanceName)}
	case http.StatusUnauthorized:
		return gateway.ConnectionResult{Message: "Authentication failed (401). Check API Token."}
	default:
		return gateway.ConnectionResult{Message: fmt.Sprintf("Error %d: %s", status, string(body))}
	}
}

// --- HTTP ---

// jsonRequest returns the status and body of any completed exchange; only
// transport failures are errors.
func jsonRequest(ctx context.Context, method, target, token string, payload any, timeout time.Duration, limit int64) (int, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var reader io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("apikey", token)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, body, nil
}

func download(ctx context.Context, target string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, pictureTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download failed: status=%d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, pictureBodyLimit))
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

func preview(body []byte) string {
	if len(body) > errorBodyPreview {
		return string(body[:errorBodyPreview]) + "..."
	}
	return string(body)
}
