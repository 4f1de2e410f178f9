package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSumAcrossSources(t *testing.T) {
	agg := NewLockAggregator(testLog(),
		&fakeLocker{name: "teamfinance", amount: wei(100)},
		&fakeLocker{name: "unicrypt", amount: wei(250)},
	)

	total := agg.Sum(context.Background(), "0xpair")
	assert.Equal(t, wei(350), total)
}

func TestSumToleratesFailingSources(t *testing.T) {
	agg := NewLockAggregator(testLog(),
		&fakeLocker{name: "teamfinance", err: errors.New("rpc down")},
		&fakeLocker{name: "unicrypt", amount: wei(70)},
		&fakeLocker{name: "pinklock", err: errors.New("revert")},
	)

	total := agg.Sum(context.Background(), "0xpair")
	assert.Equal(t, wei(70), total)
}

func TestSumAllSourcesFail(t *testing.T) {
	agg := NewLockAggregator(testLog(),
		&fakeLocker{name: "teamfinance", err: errors.New("down")},
		&fakeLocker{name: "unicrypt", err: errors.New("down")},
	)

	total := agg.Sum(context.Background(), "0xpair")
	assert.Zero(t, total.Sign())
}

func TestSumNoSources(t *testing.T) {
	agg := NewLockAggregator(testLog())
	assert.Zero(t, agg.Sum(context.Background(), "0xpair").Sign())
}
