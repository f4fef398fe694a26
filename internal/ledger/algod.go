package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/algorand/go-algorand-sdk/v2/client/v2/algod"
	"github.com/algorand/go-algorand-sdk/v2/types"

	"algo-transfers/internal/domain"
)

// AlgodClient adapts the algod REST client to domain.LedgerClient.
type AlgodClient struct {
	client *algod.Client
	logger *slog.Logger
}

var _ domain.LedgerClient = (*AlgodClient)(nil)

// NewAlgodClient connects to the node at address. A token header is only sent
// when token is not empty, which is what public nodes such as algonode expect.
func NewAlgodClient(address, token string, logger *slog.Logger) (*AlgodClient, error) {
	client, err := algod.MakeClient(address, token)
	if err != nil {
		return nil, fmt.Errorf("creating algod client for %s: %w", address, err)
	}
	return &AlgodClient{client: client, logger: logger}, nil
}

func (c *AlgodClient) SuggestedParams(ctx context.Context) (types.SuggestedParams, error) {
	params, err := c.client.SuggestedParams().Do(ctx)
	if err != nil {
		return types.SuggestedParams{}, classify("fetching suggested params", err)
	}
	return params, nil
}

func (c *AlgodClient) SubmitRaw(ctx context.Context, signed []byte) (string, error) {
	txID, err := c.client.SendRawTransaction(signed).Do(ctx)
	if err != nil {
		if code, body, ok := parseHTTPError(err); ok && code == 400 {
			return "", &domain.RejectionError{Reason: body}
		}
		return "", classify("sending raw transaction", err)
	}
	c.logger.Info("Transaction sent to node", "transaction_id", txID)
	return txID, nil
}

func (c *AlgodClient) PendingInfo(ctx context.Context, id string) (domain.PendingInfo, error) {
	info, _, err := c.client.PendingTransactionInformation(id).Do(ctx)
	if err != nil {
		return domain.PendingInfo{}, classify("fetching pending transaction "+id, err)
	}
	return domain.PendingInfo{
		ConfirmedRound: info.ConfirmedRound,
		PoolError:      info.PoolError,
	}, nil
}

func (c *AlgodClient) CurrentRound(ctx context.Context) (uint64, error) {
	status, err := c.client.Status().Do(ctx)
	if err != nil {
		return 0, classify("fetching node status", err)
	}
	return status.LastRound, nil
}

// WaitForRoundAdvance uses the node's long-poll status endpoint, which returns
// once the node has seen a round after round.
func (c *AlgodClient) WaitForRoundAdvance(ctx context.Context, round uint64) (uint64, error) {
	status, err := c.client.StatusAfterBlock(round).Do(ctx)
	if err != nil {
		return 0, classify(fmt.Sprintf("waiting for round after %d", round), err)
	}
	return status.LastRound, nil
}

func (c *AlgodClient) AccountInfo(ctx context.Context, address string) (domain.AccountInfo, error) {
	account, err := c.client.AccountInformation(address).Do(ctx)
	if err != nil {
		return domain.AccountInfo{}, classify("fetching account "+address, err)
	}
	return domain.AccountInfo{
		Address:    account.Address,
		Amount:     account.Amount,
		MinBalance: account.MinBalance,
		Round:      account.Round,
		Status:     account.Status,
	}, nil
}

// The SDK reports non-2xx answers as "HTTP <code>: <body>".
var httpErrorPattern = regexp.MustCompile(`HTTP (\d{3})`)

func parseHTTPError(err error) (int, string, bool) {
	msg := err.Error()
	m := httpErrorPattern.FindStringSubmatchIndex(msg)
	if m == nil {
		return 0, "", false
	}
	code, convErr := strconv.Atoi(msg[m[2]:m[3]])
	if convErr != nil {
		return 0, "", false
	}

	body := strings.TrimSpace(strings.TrimPrefix(msg[m[3]:], ":"))
	var payload struct {
		Message string `json:"message"`
	}
	if json.Unmarshal([]byte(body), &payload) == nil && payload.Message != "" {
		body = payload.Message
	}
	return code, body, true
}

func classify(op string, err error) error {
	if code, _, ok := parseHTTPError(err); ok && code == 404 {
		return fmt.Errorf("%s: %w", op, domain.ErrLedgerNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}
