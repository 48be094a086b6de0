// Package apiclient talks to the booking API over REST.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"pawhub/models"
	"pawhub/services/booking"
	"pawhub/utils"
)

// Client is a booking API client acting as one participant.
type Client struct {
	baseURL  string
	viewerID string
	http     *http.Client
	logger   *zap.Logger
}

func New(baseURL, viewerID string, timeout time.Duration, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		viewerID: viewerID,
		http:     &http.Client{Timeout: timeout},
		logger:   logger,
	}
}

// GetBookingDetails fetches a booking and applies the occurrence and cost defaults.
func (c *Client) GetBookingDetails(ctx context.Context, bookingID string) (*models.Booking, error) {
	var b models.Booking
	if err := c.do(ctx, http.MethodGet, "/api/bookings/"+url.PathEscape(bookingID), nil, &b); err != nil {
		return nil, err
	}
	booking.Normalize(&b)
	return &b, nil
}

// UpdateBookingTerms sends a provider edit of the offer.
func (c *Client) UpdateBookingTerms(ctx context.Context, bookingID string, req models.UpdateTermsRequest) (*models.Booking, error) {
	var b models.Booking
	path := "/api/bookings/" + url.PathEscape(bookingID) + "/terms"
	if err := c.do(ctx, http.MethodPut, path, req, &b); err != nil {
		return nil, err
	}
	booking.Normalize(&b)
	return &b, nil
}

// ApproveBooking approves the booking and returns it in its new state.
func (c *Client) ApproveBooking(ctx context.Context, bookingID string) (*models.Booking, error) {
	return c.bookingCall(ctx, bookingID, "approve", nil)
}

func (c *Client) RequestBookingChanges(ctx context.Context, bookingID, message string) (*models.Booking, error) {
	return c.bookingCall(ctx, bookingID, "request-changes", models.ChangeRequestBody{Message: message})
}

func (c *Client) MarkBookingCompleted(ctx context.Context, bookingID string) (*models.Booking, error) {
	return c.bookingCall(ctx, bookingID, "complete", nil)
}

// ApplyAction performs one of the provider-side workflow actions.
func (c *Client) ApplyAction(ctx context.Context, bookingID string, action booking.Action) (*models.Booking, error) {
	return c.bookingCall(ctx, bookingID, "actions", models.ActionBody{Action: string(action)})
}

// GetIncompleteBookings lists the conversation's bookings that are not yet completed.
func (c *Client) GetIncompleteBookings(ctx context.Context, conversationID string) ([]models.Booking, error) {
	var out []models.Booking
	path := "/api/conversations/" + url.PathEscape(conversationID) + "/incomplete-bookings"
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	for i := range out {
		booking.Normalize(&out[i])
	}
	return out, nil
}

func (c *Client) SubmitBookingReview(ctx context.Context, review models.ReviewSubmission) (*models.Review, error) {
	var out models.Review
	path := "/api/bookings/" + url.PathEscape(review.BookingID) + "/review"
	if err := c.do(ctx, http.MethodPost, path, review, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FetchMessages returns one page of history, newest first. Pages start at 1.
func (c *Client) FetchMessages(ctx context.Context, conversationID string, page, limit int) (models.MessagePage, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))
	path := "/api/conversations/" + url.PathEscape(conversationID) + "/messages?" + q.Encode()

	var out models.MessagePage
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return models.MessagePage{}, err
	}
	return out, nil
}

func (c *Client) SendMessage(ctx context.Context, conversationID string, req models.SendMessageRequest) (*models.ConversationMessage, error) {
	var out models.ConversationMessage
	path := "/api/conversations/" + url.PathEscape(conversationID) + "/messages"
	if err := c.do(ctx, http.MethodPost, path, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) bookingCall(ctx context.Context, bookingID, op string, body interface{}) (*models.Booking, error) {
	var b models.Booking
	path := "/api/bookings/" + url.PathEscape(bookingID) + "/" + op
	if err := c.do(ctx, http.MethodPost, path, body, &b); err != nil {
		return nil, err
	}
	booking.Normalize(&b)
	return &b, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(utils.ViewerHeader, c.viewerID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return utils.WrapAppError(err, utils.KindNetwork, "network_error", "Could not reach the server")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := decodeError(resp)
		c.logger.Debug("API call failed",
			zap.String("method", method), zap.String("path", path),
			zap.Int("status", resp.StatusCode), zap.String("code", apiErr.Code))
		return apiErr
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return utils.WrapAppError(err, utils.KindNetwork, "bad_response", "Unexpected response from the server")
	}
	return nil
}

// decodeError maps an error response onto the shared error taxonomy.
func decodeError(resp *http.Response) *utils.AppError {
	var body utils.ErrorResponse
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err := json.Unmarshal(raw, &body); err != nil || body.Message == "" {
		body.Message = http.StatusText(resp.StatusCode)
	}
	code := body.Code
	if code == "" {
		code = "http_" + strconv.Itoa(resp.StatusCode)
	}

	var kind utils.ErrorKind
	switch {
	case resp.StatusCode == http.StatusGone || code == string(utils.KindCounterpartyDeleted):
		kind = utils.KindCounterpartyDeleted
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity:
		kind = utils.KindValidation
	case resp.StatusCode == http.StatusConflict:
		kind = utils.KindTransition
	case resp.StatusCode == http.StatusNotFound:
		kind = utils.KindNotFound
	case resp.StatusCode == http.StatusForbidden:
		kind = utils.KindForbidden
	default:
		kind = utils.KindNetwork
	}

	var cause error
	if body.Details != "" {
		cause = errors.New(body.Details)
	}
	return utils.WrapAppError(cause, kind, code, body.Message)
}
