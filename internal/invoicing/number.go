package invoicing

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrNumberUnavailable = errors.New("INVOICE_NUMBER_FAILED")

const sequenceTTL = 62 * 24 * time.Hour

// LastNumberSource returns the highest invoice number issued with the given
// YYMM prefix, or "" when the month has none yet.
type LastNumberSource interface {
	LastInvoiceNumber(ctx context.Context, prefix string) (string, error)
}

// Numberer hands out YYMMXXX invoice numbers. The per-month counter lives
// in redis; the first request of a month seeds it from postgres so numbers
// continue after a cache flush.
type Numberer struct {
	redis redis.Cmdable
	last  LastNumberSource
	now   func() time.Time
}

func NewNumberer(rdb redis.Cmdable, last LastNumberSource) *Numberer {
	return &Numberer{redis: rdb, last: last, now: time.Now}
}

func sequenceKey(prefix string) string {
	return "invoice:seq:" + prefix
}

func (n *Numberer) Next(ctx context.Context) (string, error) {
	prefix := n.now().Format("0601")
	key := sequenceKey(prefix)

	exists, err := n.redis.Exists(ctx, key).Result()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNumberUnavailable, err)
	}
	if exists == 0 {
		seed, err := n.seed(ctx, prefix)
		if err != nil {
			return "", err
		}
		if err := n.redis.SetNX(ctx, key, seed, sequenceTTL).Err(); err != nil {
			return "", fmt.Errorf("%w: %v", ErrNumberUnavailable, err)
		}
	}

	seq, err := n.redis.Incr(ctx, key).Result()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNumberUnavailable, err)
	}
	return FormatNumber(prefix, seq), nil
}

func (n *Numberer) seed(ctx context.Context, prefix string) (int64, error) {
	last, err := n.last.LastInvoiceNumber(ctx, prefix)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrNumberUnavailable, err)
	}
	return SequenceOf(last, prefix), nil
}

// FormatNumber renders prefix plus a zero padded three digit sequence.
func FormatNumber(prefix string, seq int64) string {
	return fmt.Sprintf("%s%03d", prefix, seq)
}

// SequenceOf extracts the trailing sequence of a number issued in the
// month given by prefix. Numbers from other months restart at zero.
func SequenceOf(number, prefix string) int64 {
	if len(number) < 7 || number[:4] != prefix {
		return 0
	}
	seq, err := strconv.ParseInt(number[len(number)-3:], 10, 64)
	if err != nil {
		return 0
	}
	return seq
}
