package market

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"cryptocandles/internal/logger"

	"github.com/fsnotify/fsnotify"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const tablesSchema = `{
  "type": "object",
  "required": ["instruments", "default_id", "snapshot", "default_anchor"],
  "additionalProperties": false,
  "properties": {
    "instruments": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["symbol", "id"],
        "additionalProperties": false,
        "properties": {
          "symbol": {"type": "string", "minLength": 1},
          "id": {"type": "string", "minLength": 1},
          "ticker": {"type": "string"},
          "name": {"type": "string"},
          "image": {"type": "string"}
        }
      }
    },
    "default_id": {"type": "string", "minLength": 1},
    "snapshot": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["id", "current_price"],
        "additionalProperties": false,
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "symbol": {"type": "string"},
          "name": {"type": "string"},
          "current_price": {"type": "number", "exclusiveMinimum": 0},
          "price_change_percentage_24h": {"type": "number"},
          "image": {"type": "string"}
        }
      }
    },
    "anchor_rules": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["contains", "price"],
        "additionalProperties": false,
        "properties": {
          "contains": {"type": "string", "minLength": 1},
          "price": {"type": "number", "exclusiveMinimum": 0}
        }
      }
    },
    "default_anchor": {"type": "number", "exclusiveMinimum": 0}
  }
}`

var (
	tablesSchemaOnce sync.Once
	tablesSchemaC    *jsonschema.Schema
	tablesSchemaErr  error
)

func compiledTablesSchema() (*jsonschema.Schema, error) {
	tablesSchemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("tables.json", strings.NewReader(tablesSchema)); err != nil {
			tablesSchemaErr = err
			return
		}
		tablesSchemaC, tablesSchemaErr = compiler.Compile("tables.json")
	})
	return tablesSchemaC, tablesSchemaErr
}

// ReadTablesFile 读取并校验 YAML 表文件：先过 JSON Schema，再做语义校验。
func ReadTablesFile(path string) (Tables, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Tables{}, fmt.Errorf("read tables file failed: %w", err)
	}
	return ParseTables(raw)
}

// ParseTables decodes and validates a YAML tables document.
func ParseTables(raw []byte) (Tables, error) {
	var generic any
	if err := yaml.Unmarshal(raw, &generic); err != nil {
		return Tables{}, fmt.Errorf("parse tables failed: %w", err)
	}
	asJSON, err := json.Marshal(generic)
	if err != nil {
		return Tables{}, fmt.Errorf("parse tables failed: %w", err)
	}
	var doc any
	if err := json.Unmarshal(asJSON, &doc); err != nil {
		return Tables{}, fmt.Errorf("parse tables failed: %w", err)
	}
	schema, err := compiledTablesSchema()
	if err != nil {
		return Tables{}, fmt.Errorf("compile tables schema failed: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return Tables{}, fmt.Errorf("tables schema: %w", err)
	}

	var tables Tables
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&tables); err != nil {
		return Tables{}, fmt.Errorf("parse tables failed: %w", err)
	}
	if err := tables.Validate(); err != nil {
		return Tables{}, err
	}
	return tables, nil
}

// TablesFile 从 YAML 文件加载 Tables，并在文件变化时热更新。
// 重载失败时保留上一份有效内容。
type TablesFile struct {
	path string
	v    *viper.Viper

	mu      sync.RWMutex
	tables  Tables
	version int64
}

// OpenTablesFile loads path once. Call Watch to enable hot reload.
func OpenTablesFile(path string) (*TablesFile, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("tables file requires path")
	}
	t := &TablesFile{path: path}
	if err := t.reload(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *TablesFile) Tables() Tables {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.tables
}

// Version 每次成功重载递增。
func (t *TablesFile) Version() int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.version
}

// Watch 注册 fsnotify 回调；文件只通过 viper 监听，内容仍由 ReadTablesFile 解析。
func (t *TablesFile) Watch() {
	v := viper.New()
	v.SetConfigFile(t.path)
	v.OnConfigChange(func(evt fsnotify.Event) {
		if evt.Op&(fsnotify.Write|fsnotify.Create) == 0 {
			return
		}
		if err := t.reload(); err != nil {
			logger.Errorf("[market] tables reload failed, keeping v%d: %v", t.Version(), err)
		}
	})
	v.WatchConfig()
	t.v = v
}

func (t *TablesFile) reload() error {
	tables, err := ReadTablesFile(t.path)
	if err != nil {
		return err
	}
	t.mu.Lock()
	t.tables = tables
	t.version++
	version := t.version
	t.mu.Unlock()
	logger.Infof("[market] tables v%d loaded from %s: %d instruments, %d snapshot quotes",
		version, filepath.Base(t.path), len(tables.Instruments), len(tables.Snapshot))
	return nil
}
