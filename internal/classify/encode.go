// Firewatch - Firestore Change Watcher and Push Delivery
// Copyright 2026 luolongfei
// SPDX-License-Identifier: MIT
// https://github.com/luolongfei/firewatch

package classify

import (
	"encoding/base64"
	"fmt"

	"github.com/goccy/go-json"
)

// EncodePayload serializes a document body to the wire payload the
// delivery command expects: UTF-8 JSON encoded as standard base64.
// Map keys are marshaled in sorted order, so the encoding is a
// deterministic function of the document body.
func EncodePayload(fields map[string]any) ([]byte, error) {
	raw, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("encode document body: %w", err)
	}

	payload := make([]byte, base64.StdEncoding.EncodedLen(len(raw)))
	base64.StdEncoding.Encode(payload, raw)
	return payload, nil
}
