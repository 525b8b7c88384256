package lightx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/nikhilmehra04/stylehub-backend/pkg/config"
	"github.com/nikhilmehra04/stylehub-backend/pkg/enums"
	"github.com/nikhilmehra04/stylehub-backend/pkg/logger"
)

// Generation states reported by the provider.
const (
	StatusInit   = "init"
	StatusActive = "active"
	StatusFailed = "failed"
)

var errAPIKeyRequired = errors.New("lightx api key is required")

// Client talks to the LightX try-on API. Images must be staged through the
// provider's own storage first: request an upload slot, PUT the bytes to
// the slot URL, then reference the returned image URL in the try-on call.
type Client struct {
	httpc   *http.Client
	apiKey  string
	baseURL string
}

// NewClient builds a LightX client from configuration.
func NewClient(cfg config.LightXConfig, logg *logger.Logger) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.lightxeditor.com/external/api/v2"
	}

	if logg != nil {
		logg.Info(context.Background(), "lightx client initialized")
	}

	return &Client{
		httpc:   &http.Client{Timeout: cfg.Timeout},
		apiKey:  apiKey,
		baseURL: baseURL,
	}, nil
}

// UploadSlot is a one-shot destination for image bytes. UploadURL accepts a
// PUT; ImageURL is where the provider serves the image from afterwards.
type UploadSlot struct {
	UploadURL string
	ImageURL  string
}

// TryOnSubmission is the provider's acknowledgement of a queued generation.
type TryOnSubmission struct {
	OrderID            string
	Status             string
	MaxRetriesAllowed  int
	AvgResponseTimeSec int
}

// OrderState is a point-in-time view of a queued generation.
type OrderState struct {
	OrderID string
	Status  string
	Output  string
}

type envelope struct {
	StatusCode int             `json:"statusCode"`
	Message    string          `json:"message"`
	Body       json.RawMessage `json:"body"`
}

type uploadBody struct {
	UploadImage string `json:"uploadImage"`
	ImageURL    string `json:"imageUrl"`
	Size        int64  `json:"size"`
}

type tryOnBody struct {
	OrderID              string `json:"orderId"`
	MaxRetriesAllowed    int    `json:"maxRetriesAllowed"`
	AvgResponseTimeInSec int    `json:"avgResponseTimeInSec"`
	Status               string `json:"status"`
}

type statusBody struct {
	OrderID string `json:"orderId"`
	Status  string `json:"status"`
	Output  string `json:"output"`
}

// CreateUploadSlot reserves provider-side storage for an image of the given
// size and content type.
func (c *Client) CreateUploadSlot(ctx context.Context, size int64, contentType string) (*UploadSlot, error) {
	payload := map[string]any{
		"uploadType":  "imageUrl",
		"size":        size,
		"contentType": contentType,
	}
	var body uploadBody
	if err := c.postJSON(ctx, "/uploadImageUrl", payload, &body); err != nil {
		return nil, err
	}
	if body.UploadImage == "" || body.ImageURL == "" {
		return nil, fmt.Errorf("lightx upload slot response is incomplete")
	}
	return &UploadSlot{UploadURL: body.UploadImage, ImageURL: body.ImageURL}, nil
}

// UploadImage PUTs raw image bytes to a slot's upload URL.
func (c *Client) UploadImage(ctx context.Context, uploadURL string, image []byte, contentType string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, bytes.NewReader(image))
	if err != nil {
		return fmt.Errorf("building upload request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	res, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("uploading image: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return fmt.Errorf("lightx upload returned status %d", res.StatusCode)
	}
	return nil
}

// SubmitTryOn queues a generation combining a person image with an outfit
// image, both already staged on the provider.
func (c *Client) SubmitTryOn(ctx context.Context, personImageURL, outfitImageURL string, segmentation enums.SegmentationType) (*TryOnSubmission, error) {
	payload := map[string]any{
		"imageUrl":         personImageURL,
		"outfitImageUrl":   outfitImageURL,
		"segmentationType": int(segmentation),
	}
	var body tryOnBody
	if err := c.postJSON(ctx, "/aivirtualtryon", payload, &body); err != nil {
		return nil, err
	}
	if body.OrderID == "" {
		return nil, fmt.Errorf("lightx try-on response has no order id")
	}
	return &TryOnSubmission{
		OrderID:            body.OrderID,
		Status:             body.Status,
		MaxRetriesAllowed:  body.MaxRetriesAllowed,
		AvgResponseTimeSec: body.AvgResponseTimeInSec,
	}, nil
}

// OrderStatus reads the current state of a queued generation.
func (c *Client) OrderStatus(ctx context.Context, orderID string) (*OrderState, error) {
	payload := map[string]any{"orderId": orderID}
	var body statusBody
	if err := c.postJSON(ctx, "/order-status", payload, &body); err != nil {
		return nil, err
	}
	return &OrderState{OrderID: body.OrderID, Status: body.Status, Output: body.Output}, nil
}

func (c *Client) postJSON(ctx context.Context, path string, payload any, out any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding lightx request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("building lightx request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)

	res, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("calling lightx %s: %w", path, err)
	}
	defer res.Body.Close()

	raw, err = io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("reading lightx response: %w", err)
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return fmt.Errorf("lightx %s returned status %d: %s", path, res.StatusCode, strings.TrimSpace(string(raw)))
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("decoding lightx response: %w", err)
	}
	if len(env.Body) == 0 {
		return fmt.Errorf("lightx %s response has no body", path)
	}
	if err := json.Unmarshal(env.Body, out); err != nil {
		return fmt.Errorf("decoding lightx response body: %w", err)
	}
	return nil
}
