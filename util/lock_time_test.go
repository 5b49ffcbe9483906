package util

import (
	"testing"

	"github.com/bsv-blockchain/verdict/model"
	"github.com/stretchr/testify/assert"
)

func TestIsTransactionFinal(t *testing.T) {
	const now = int64(1_700_000_000)

	newTx := func(lockTime uint32, sequences ...uint32) *model.Transaction {
		tx := &model.Transaction{LockTime: lockTime}
		for _, sequence := range sequences {
			tx.Inputs = append(tx.Inputs, &model.Input{SequenceNumber: sequence})
		}

		return tx
	}

	tests := []struct {
		name        string
		tx          *model.Transaction
		blockHeight uint32
		want        bool
	}{
		{name: "no lock time", tx: newTx(0, 123), blockHeight: 1, want: true},
		{name: "height lock time above block height", tx: newTx(123, 1), blockHeight: 100, want: false},
		{name: "height lock time equal to block height", tx: newTx(123, 1), blockHeight: 123, want: false},
		{name: "height lock time below block height", tx: newTx(123, 1), blockHeight: 124, want: true},
		{name: "unmet height lock time with final sequences", tx: newTx(123, SequenceFinal, SequenceFinal), blockHeight: 100, want: true},
		{name: "unmet height lock time with one non final sequence", tx: newTx(123, SequenceFinal, 5), blockHeight: 100, want: false},
		{name: "time lock time in the past", tx: newTx(uint32(now-600), 1), blockHeight: 100, want: true},
		{name: "time lock time equal to block time", tx: newTx(uint32(now), 1), blockHeight: 100, want: false},
		{name: "time lock time in the future", tx: newTx(uint32(now+600), 1), blockHeight: 100, want: false},
		{name: "time lock time in the future with final sequence", tx: newTx(uint32(now+600), SequenceFinal), blockHeight: 100, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransactionFinal(tt.tx, tt.blockHeight, now))
		})
	}
}

func TestValidLockTime_Threshold(t *testing.T) {
	// just below the threshold is still a height
	assert.True(t, ValidLockTime(LockTimeThreshold-1, LockTimeThreshold, 0))
	assert.False(t, ValidLockTime(LockTimeThreshold, LockTimeThreshold+1, 0))
	assert.True(t, ValidLockTime(LockTimeThreshold, 0, LockTimeThreshold+1))
}
