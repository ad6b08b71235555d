package producer

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"

	"github.com/YaganovValera/analytics-system/stream-connector/common/backoff"
	"github.com/YaganovValera/analytics-system/stream-connector/common/logger"
)

var fastBackoff = backoff.Config{
	InitialInterval: time.Millisecond,
	Multiplier:      1,
	MaxInterval:     time.Millisecond,
	MaxElapsedTime:  50 * time.Millisecond,
}

func TestConfigDefaultsAndValidate(t *testing.T) {
	cases := []struct {
		name     string
		input    Config
		wantErr  bool
		wantAcks string
		wantComp string
	}{
		{"empty", Config{}, true, "all", "none"},
		{"noBrokers", Config{Compression: "gzip"}, true, "all", "gzip"},
		{"ok", Config{Brokers: []string{"b1"}}, false, "all", "none"},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			cfg := c.input
			cfg.applyDefaults()
			if got := cfg.RequiredAcks; got != c.wantAcks {
				t.Errorf("RequiredAcks = %q; want %q", got, c.wantAcks)
			}
			if got := cfg.Compression; got != c.wantComp {
				t.Errorf("Compression = %q; want %q", got, c.wantComp)
			}
			if cfg.Timeout != 5*time.Second {
				t.Errorf("Timeout = %v; want 5s", cfg.Timeout)
			}
			if err := cfg.validate(); (err != nil) != c.wantErr {
				t.Errorf("validate() error = %v; wantErr=%v", err, c.wantErr)
			}
		})
	}
}

func TestBuildSaramaConfig_RequiredAcks(t *testing.T) {
	cases := []struct {
		acks       string
		want       sarama.RequiredAcks
		idempotent bool
		wantErr    bool
	}{
		{"all", sarama.WaitForAll, true, false},
		{"ALL", sarama.WaitForAll, true, false},
		{"LeAdEr", sarama.WaitForLocal, false, false},
		{"none", sarama.NoResponse, false, false},
		{"invalid", 0, false, true},
	}
	for _, c := range cases {
		t.Run(c.acks, func(t *testing.T) {
			sc, err := buildSaramaConfig(Config{RequiredAcks: c.acks, Compression: "none", Brokers: []string{"x"}})
			if c.wantErr {
				if err == nil {
					t.Errorf("buildSaramaConfig(%q) expected error", c.acks)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if sc.Producer.RequiredAcks != c.want {
				t.Errorf("RequiredAcks = %v; want %v", sc.Producer.RequiredAcks, c.want)
			}
			if sc.Producer.Idempotent != c.idempotent {
				t.Errorf("Idempotent = %v; want %v", sc.Producer.Idempotent, c.idempotent)
			}
			if err := sc.Validate(); err != nil {
				t.Errorf("sarama rejected config: %v", err)
			}
		})
	}
}

func TestBuildSaramaConfig_Timeout(t *testing.T) {
	def := sarama.NewConfig().Producer.Timeout
	cases := []struct {
		name    string
		timeout time.Duration
		want    time.Duration
	}{
		{"zero keeps sarama default", 0, def},
		{"explicit", 2 * time.Second, 2 * time.Second},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			sc, err := buildSaramaConfig(Config{RequiredAcks: "all", Compression: "none", Timeout: c.timeout})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if sc.Producer.Timeout != c.want {
				t.Errorf("Producer.Timeout = %v; want %v", sc.Producer.Timeout, c.want)
			}
			if err := sc.Validate(); err != nil {
				t.Errorf("sarama rejected config: %v", err)
			}
		})
	}
}

func TestBuildSaramaConfig_Compression(t *testing.T) {
	cases := []struct {
		comp    string
		wantErr bool
	}{
		{"none", false}, {"gzip", false}, {"snappy", false},
		{"lz4", false}, {"zstd", false}, {"NONE", false},
		{"bogus", true},
	}
	for _, c := range cases {
		t.Run(c.comp, func(t *testing.T) {
			_, err := buildSaramaConfig(Config{RequiredAcks: "all", Compression: c.comp, Brokers: []string{"x"}})
			if (err != nil) != c.wantErr {
				t.Errorf("buildSaramaConfig comp=%q error = %v; wantErr=%v", c.comp, err, c.wantErr)
			}
		})
	}
}

func TestPublish_RetryAndSuccess(t *testing.T) {
	mockProd := mocks.NewSyncProducer(t, sarama.NewConfig())
	mockProd.ExpectSendMessageWithCheckerFunctionAndFail(func(v []byte) error { return nil }, sarama.ErrOutOfBrokers)
	mockProd.ExpectSendMessageWithCheckerFunctionAndSucceed(func(v []byte) error {
		if !strings.Contains(string(v), "value") {
			return errors.New("unexpected payload " + string(v))
		}
		return nil
	})

	kp := &kafkaProducer{prod: mockProd, logger: logger.NewNop(), backoffCfg: fastBackoff}
	if err := kp.Publish(context.Background(), "topic", []byte("key"), []byte("value")); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if err := kp.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
}

func TestPublish_GivesUp(t *testing.T) {
	mockProd := mocks.NewSyncProducer(t, sarama.NewConfig())
	for i := 0; i < 200; i++ {
		mockProd.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)
	}

	cfg := fastBackoff
	cfg.MaxElapsedTime = 5 * time.Millisecond
	kp := &kafkaProducer{prod: mockProd, logger: logger.NewNop(), backoffCfg: cfg}
	err := kp.Publish(context.Background(), "topic", nil, []byte("v"))
	if !errors.Is(err, sarama.ErrOutOfBrokers) {
		t.Fatalf("Publish err = %v; want ErrOutOfBrokers", err)
	}
}

func TestPing_NoClient(t *testing.T) {
	kp := &kafkaProducer{prod: mocks.NewSyncProducer(t, sarama.NewConfig()), logger: logger.NewNop()}
	if err := kp.Ping(context.Background()); err == nil {
		t.Fatal("Ping without client succeeded")
	}
	_ = kp.Close()
}

func TestNew_InvalidConfig(t *testing.T) {
	if _, err := New(context.Background(), Config{}, logger.NewNop()); err == nil {
		t.Fatal("expected error for empty Config, got nil")
	}
	cfg := Config{Brokers: []string{"dummy"}, RequiredAcks: "invalid"}
	if _, err := New(context.Background(), cfg, logger.NewNop()); err == nil {
		t.Fatal("expected error for invalid RequiredAcks, got nil")
	}
}
