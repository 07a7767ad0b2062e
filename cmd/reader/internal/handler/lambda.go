package handler

import (
	"context"

	"github.com/aws/aws-lambda-go/events"

	"github.com/soocrates/SAM-App-API-GW-Cache-Lambda-DynamoDB/cmd/reader/internal/protocol"
)

// HandleAPIGateway is the Lambda entry point behind an API Gateway REST proxy integration.
func (h *Handler) HandleAPIGateway(ctx context.Context, ev events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	resp := h.Handle(ctx, protocol.Request{
		Resource:       ev.Resource,
		Method:         ev.HTTPMethod,
		PathParameters: ev.PathParameters,
	})

	return events.APIGatewayProxyResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Headers,
		Body:       resp.Body,
	}, nil
}
