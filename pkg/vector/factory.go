// Copyright 2025 Mekan Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package vector

import (
	"fmt"

	"github.com/mekanlabs/steward/pkg/config"
)

// NewFromConfig creates a vector index from configuration.
func NewFromConfig(cfg *config.VectorConfig) (Index, error) {
	switch cfg.Provider {
	case "chromem":
		return NewChromemIndex(ChromemConfig{
			Collection:  cfg.Collection,
			PersistPath: cfg.Chromem.PersistPath,
			Compress:    cfg.Chromem.Compress,
		})
	case "qdrant":
		return NewQdrantIndex(QdrantConfig{
			Collection: cfg.Collection,
			Host:       cfg.Qdrant.Host,
			Port:       cfg.Qdrant.Port,
			APIKey:     cfg.Qdrant.APIKey,
			UseTLS:     cfg.Qdrant.UseTLS,
		})
	default:
		return nil, fmt.Errorf("unsupported vector provider: %s", cfg.Provider)
	}
}
