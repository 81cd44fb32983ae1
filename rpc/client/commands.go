package client

import (
	"context"
	"fmt"
	"strconv"

	"github.com/vivskv/vivs/lib/frame"
)

// --------------------------------------------------------------------------
// Typed commands
// --------------------------------------------------------------------------

// Ping sends PING (with an optional message) and returns the answer
func (c *Client) Ping(ctx context.Context, message ...string) (string, error) {
	if len(message) > 1 {
		return "", fmt.Errorf("ping takes at most one message")
	}
	resp, err := c.Do(ctx, append([]string{"PING"}, message...)...)
	if err != nil {
		return "", err
	}
	if err := expect(resp, frame.TypeSimpleString, frame.TypeBulk); err != nil {
		return "", err
	}
	return resp.Text(), nil
}

// Get returns the value of key. found is false if the key does not exist or expired.
func (c *Client) Get(ctx context.Context, key string) (value []byte, found bool, err error) {
	resp, err := c.Do(ctx, "GET", key)
	if err != nil {
		return nil, false, err
	}
	if resp.IsNull() {
		return nil, false, nil
	}
	if err := expect(resp, frame.TypeSimpleString, frame.TypeBulk); err != nil {
		return nil, false, err
	}
	return resp.Data, true, nil
}

// Set stores value under key without expiry (clearing a previous TTL)
func (c *Client) Set(ctx context.Context, key, value string) error {
	resp, err := c.Do(ctx, "SET", key, value)
	if err != nil {
		return err
	}
	return expectOK(resp)
}

// SetWithTTL stores value under key, expiring after ttlSeconds
func (c *Client) SetWithTTL(ctx context.Context, key, value string, ttlSeconds uint64) error {
	resp, err := c.Do(ctx, "SET", key, value, "xs", strconv.FormatUint(ttlSeconds, 10))
	if err != nil {
		return err
	}
	return expectOK(resp)
}

// Delete removes key and reports whether it existed
func (c *Client) Delete(ctx context.Context, key string) (bool, error) {
	resp, err := c.Do(ctx, "DELETE", key)
	if err != nil {
		return false, err
	}
	if err := expect(resp, frame.TypeInteger); err != nil {
		return false, err
	}
	return resp.Int == 1, nil
}

// TTL returns the remaining seconds until key expires (0 if it has no TTL or does not exist)
func (c *Client) TTL(ctx context.Context, key string) (uint64, error) {
	resp, err := c.Do(ctx, "TTL", key)
	if err != nil {
		return 0, err
	}
	if err := expect(resp, frame.TypeInteger); err != nil {
		return 0, err
	}
	return resp.Int, nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// expect returns the server error carried by resp or ErrUnexpectedResponse if
// resp has none of the given types
func expect(resp frame.Frame, types ...frame.Type) error {
	if resp.IsError() {
		return &ResponseError{Msg: resp.Text()}
	}
	for _, t := range types {
		if resp.Type == t {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrUnexpectedResponse, resp)
}

func expectOK(resp frame.Frame) error {
	if err := expect(resp, frame.TypeSimpleString); err != nil {
		return err
	}
	if resp.Text() != "OK" {
		return fmt.Errorf("%w: %s", ErrUnexpectedResponse, resp)
	}
	return nil
}
