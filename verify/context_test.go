/*
Copyright 2021 The cert-manager Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package verify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/cert-manager/x509path/certstore"
	"github.com/cert-manager/x509path/revoke"
)

func Test_New_defaults(t *testing.T) {
	ctx := New()
	assert.Equal(t, defaultMaxDepth, ctx.MaxDepth())
	assert.Nil(t, ctx.TrustAnchors())
	assert.Nil(t, ctx.Revoke())
	assert.Zero(t, ctx.Flags&TimeExplicit)
}

func Test_SetTime_setsExplicitFlag(t *testing.T) {
	ctx := New()
	pinned := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	ctx.SetTime(pinned)

	assert.NotZero(t, ctx.Flags&TimeExplicit)
	assert.Equal(t, pinned, ctx.Now())
}

func Test_Now_defaultsToWallClock(t *testing.T) {
	ctx := New()
	before := time.Now()
	now := ctx.Now()
	assert.True(t, !now.Before(before))
}

func Test_AttachAnchorsAndRevoke(t *testing.T) {
	ctx := New()
	anchors := certstore.NewMemoryStore()
	defer anchors.Close()
	oracle := revoke.NewStaticOracle()

	ctx.AttachAnchors(anchors)
	ctx.AttachRevoke(oracle)

	assert.Same(t, anchors, ctx.TrustAnchors())
	assert.Same(t, oracle, ctx.Revoke())
}

func Test_SetMaxDepth(t *testing.T) {
	ctx := New()
	ctx.SetMaxDepth(5)
	assert.Equal(t, 5, ctx.MaxDepth())
}
