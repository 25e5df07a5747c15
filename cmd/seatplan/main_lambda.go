//go:build lambda

package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"github.com/iliyamo/seating-planner/internal/seating"
	"github.com/iliyamo/seating-planner/internal/snapshot"
)

var jsonHeader = map[string]string{
	"Content-Type": "application/json",
}

// handler optimizes the snapshot in the request body. ?seed=N fixes the
// random seed. The search stops one second before the invocation deadline.
func handler(ctx context.Context, event events.LambdaFunctionURLRequest) (events.LambdaFunctionURLResponse, error) {
	body := event.Body
	if event.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(body)
		if err != nil {
			return errResp(400, "invalid base64 body")
		}
		body = string(decoded)
	}

	cfg := seating.DefaultConfig()
	if s := event.QueryStringParameters["seed"]; s != "" {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return errResp(400, "invalid seed")
		}
		cfg.Seed = n
	}
	if dl, ok := ctx.Deadline(); ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithDeadline(ctx, dl.Add(-time.Second))
		defer cancel()
	}

	log, _ := zap.NewProduction()
	res, _, err := solve(ctx, []byte(body), cfg, log)
	var ce *seating.InsufficientCapacityError
	switch {
	case errors.Is(err, snapshot.ErrInvalidJSON):
		return errResp(400, "invalid JSON")
	case errors.As(err, &ce):
		return errResp(422, ce.Error())
	case err != nil:
		return errResp(400, err.Error())
	}
	out, _ := json.Marshal(res)
	return events.LambdaFunctionURLResponse{StatusCode: 200, Headers: jsonHeader, Body: string(out)}, nil
}

func errResp(code int, msg string) (events.LambdaFunctionURLResponse, error) {
	body, _ := json.Marshal(map[string]string{"error": msg})
	return events.LambdaFunctionURLResponse{StatusCode: code, Headers: jsonHeader, Body: string(body)}, nil
}

func main() {
	lambda.Start(handler)
}
