package webhookutil

import (
	"context"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
)

var client = resty.New().
	SetJSONMarshaler(sonic.Marshal).
	SetJSONUnmarshaler(sonic.Unmarshal).
	SetTimeout(2 * time.Minute)

func Invoke[T any](ctx context.Context, url string, data T) error {
	resp, err := client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(data).
		Post(url)
	if err != nil {
		return err
	}

	if resp.IsError() {
		return fmt.Errorf("webhook returned non-2xx status: %d", resp.StatusCode())
	}

	return nil
}

func InvokeWithRetries[T any](ctx context.Context, url string, data T, maxAttempts int) error {
	var err error
	backOff := time.Second
	for i := 0; i < maxAttempts; i++ {
		err = Invoke(ctx, url, data)
		if err == nil {
			return nil
		}

		if i == maxAttempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backOff):
		}
		backOff *= 2
	}

	return err
}
