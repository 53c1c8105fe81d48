// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package daq

import (
	"bytes"
	"math/rand"
	"os"
	"strconv"
	"testing"
	"time"
)

// getFuzzRounds returns the number of fuzz rounds from FUZZ_ROUNDS env var, default 1000
func getFuzzRounds() int {
	if envRounds := os.Getenv("FUZZ_ROUNDS"); envRounds != "" {
		if rounds, err := strconv.Atoi(envRounds); err == nil && rounds > 0 {
			return rounds
		}
	}
	return 1000
}

// getFuzzSeed returns the seed from FUZZ_SEED env var, or generates one from current time
func getFuzzSeed() int64 {
	if envSeed := os.Getenv("FUZZ_SEED"); envSeed != "" {
		if seed, err := strconv.ParseInt(envSeed, 10, 64); err == nil {
			return seed
		}
	}
	return time.Now().UnixNano()
}

// newFuzzRng creates a new random number generator and logs the seed for reproducibility
func newFuzzRng(t *testing.T) *rand.Rand {
	seed := getFuzzSeed()
	t.Logf("Seed: %d (reproduce with FUZZ_SEED=%d)", seed, seed)
	return rand.New(rand.NewSource(seed))
}

func randomPayload(rng *rand.Rand, n int) []byte {
	payload := make([]byte, n)
	rng.Read(payload)
	return payload
}

// ============================================================
// Round-Trip Fuzz Tests
// ============================================================

func TestFuzz_RoundTripAllAddresses(t *testing.T) {
	rng := newFuzzRng(t)

	// 8-bit I2C addresses have a clear low bit; the low bit on the wire
	// belongs to the length mode.
	for addr := 0; addr <= 0xFF; addr++ {
		for n := 0; n <= MaxPayloadSize; n++ {
			address := byte(addr)
			if n < MaxPayloadSize {
				address &^= 0x01
			}
			payload := randomPayload(rng, n)

			c, err := NewCommand(address, payload...)
			if err != nil {
				t.Fatalf("NewCommand(0x%02X, %v) failed: %v", address, payload, err)
			}

			gotAddress, gotPayload, err := Decode(Join(Split(c)))
			if err != nil {
				t.Fatalf("Decode(0x%012X) failed: %v", uint64(c), err)
			}

			wantAddress := address
			if n == MaxPayloadSize {
				wantAddress |= 0x01
			}
			if gotAddress != wantAddress {
				t.Fatalf("address 0x%02X len %d: decoded 0x%02X", address, n, gotAddress)
			}
			if !bytes.Equal(gotPayload, payload) {
				t.Fatalf("address 0x%02X: payload %v decoded as %v", address, payload, gotPayload)
			}
		}
	}
}

func TestFuzz_RandomRegistersNeverPanic(t *testing.T) {
	rng := newFuzzRng(t)
	rounds := getFuzzRounds()

	for i := 0; i < rounds; i++ {
		r := Registers{uint16(rng.Intn(1 << 16)), uint16(rng.Intn(1 << 16)), uint16(rng.Intn(1 << 16))}
		c := Join(r)

		if Split(c) != r {
			t.Fatalf("round %d: Split(Join(%v)) = %v", i, r, Split(c))
		}

		address, payload, err := Decode(c)
		if err != nil {
			continue
		}

		// Any decodable word re-encodes to itself
		again, err := NewCommand(address, payload...)
		if err != nil {
			t.Fatalf("round %d: re-encode failed: %v", i, err)
		}
		if again != c {
			t.Fatalf("round %d: 0x%012X re-encoded as 0x%012X", i, uint64(c), uint64(again))
		}
	}
}

func TestFuzz_OversizedPayloadsRejected(t *testing.T) {
	rng := newFuzzRng(t)
	rounds := getFuzzRounds()

	for i := 0; i < rounds; i++ {
		n := MaxPayloadSize + 1 + rng.Intn(32)
		if _, err := NewCommand(byte(rng.Intn(256)), randomPayload(rng, n)...); err == nil {
			t.Fatalf("round %d: %d byte payload accepted", i, n)
		}
	}
}
