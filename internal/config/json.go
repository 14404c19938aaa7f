package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

type StructuredJSONConfig struct {
	App struct {
		Version string `json:"version"`
	} `json:"app,omitempty"`

	Auth struct {
		TokenSignKey  string   `json:"token_sign_key"`
		TokenIssuer   string   `json:"token_issuer"`
		TokenDuration Duration `json:"token_duration"`
		ClientToken   string   `json:"client_token"`
	} `json:"auth,omitempty"`

	Storage struct {
		DB struct {
			DSN string `json:"dsn"`
		} `json:"db,omitempty"`
	} `json:"storage,omitempty"`

	Server struct {
		HTTPAddress    string   `json:"http_address"`
		RequestTimeout Duration `json:"request_timeout"`
	} `json:"server,omitempty"`

	Sync struct {
		MaxBatchSize  int `json:"max_batch_size"`
		PullPageLimit int `json:"pull_page_limit"`
	} `json:"sync,omitempty"`

	Broadcast struct {
		SendBuffer     int      `json:"send_buffer"`
		ActorIdleAfter Duration `json:"actor_idle_after"`
	} `json:"broadcast,omitempty"`

	Adapter struct {
		HTTPAddress    string   `json:"http_address"`
		RequestTimeout Duration `json:"request_timeout"`
	} `json:"adapter,omitempty"`

	Workers struct {
		SyncInterval       Duration `json:"sync_interval"`
		BatchSize          int      `json:"batch_size"`
		RetryWaitMin       Duration `json:"retry_wait_min"`
		RetryWaitMax       Duration `json:"retry_wait_max"`
		RetryJitterPercent uint64   `json:"retry_jitter_percent"`
	} `json:"workers,omitempty"`
}

func parseJSON(jsonFilePath string) (*StructuredConfig, error) {
	jsonFile, err := os.Open(jsonFilePath)
	if err != nil {
		return nil, fmt.Errorf("error reading a json file: %w", err)
	}
	defer jsonFile.Close()

	var jsonCfg StructuredJSONConfig
	if err := json.NewDecoder(jsonFile).Decode(&jsonCfg); err != nil {
		return nil, fmt.Errorf("error decoding json configs: %w", err)
	}

	cfg := &StructuredConfig{
		App: App{
			Version: jsonCfg.App.Version,
		},
		Auth: Auth{
			TokenSignKey:  jsonCfg.Auth.TokenSignKey,
			TokenIssuer:   jsonCfg.Auth.TokenIssuer,
			TokenDuration: time.Duration(jsonCfg.Auth.TokenDuration),
			ClientToken:   jsonCfg.Auth.ClientToken,
		},
		Storage: Storage{
			DB: DB{
				DSN: jsonCfg.Storage.DB.DSN,
			},
		},
		Server: Server{
			HTTPAddress:    jsonCfg.Server.HTTPAddress,
			RequestTimeout: time.Duration(jsonCfg.Server.RequestTimeout),
		},
		Sync: Sync{
			MaxBatchSize:  jsonCfg.Sync.MaxBatchSize,
			PullPageLimit: jsonCfg.Sync.PullPageLimit,
		},
		Broadcast: Broadcast{
			SendBuffer:     jsonCfg.Broadcast.SendBuffer,
			ActorIdleAfter: time.Duration(jsonCfg.Broadcast.ActorIdleAfter),
		},
		Adapter: Adapter{
			HTTPAddress:    jsonCfg.Adapter.HTTPAddress,
			RequestTimeout: time.Duration(jsonCfg.Adapter.RequestTimeout),
		},
		Workers: Workers{
			SyncInterval:       time.Duration(jsonCfg.Workers.SyncInterval),
			BatchSize:          jsonCfg.Workers.BatchSize,
			RetryWaitMin:       time.Duration(jsonCfg.Workers.RetryWaitMin),
			RetryWaitMax:       time.Duration(jsonCfg.Workers.RetryWaitMax),
			RetryJitterPercent: jsonCfg.Workers.RetryJitterPercent,
		},
		JSONFilePath: "",
	}

	return cfg, nil
}

// Duration is a wrapper around time.Duration that supports JSON unmarshaling from strings like "1h", "30s"
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	switch value := v.(type) {
	case float64:
		*d = Duration(time.Duration(value))
		return nil
	case string:
		tmp, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		*d = Duration(tmp)
		return nil
	default:
		return json.Unmarshal(b, (*time.Duration)(d))
	}
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}
