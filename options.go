package irstream

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/arloliu/irstream/codec"
	"github.com/arloliu/irstream/errs"
	"github.com/arloliu/irstream/format"
	"github.com/arloliu/irstream/internal/options"
)

// DefaultBufferCapacity is the initial decode buffer capacity of a Reader.
const DefaultBufferCapacity = 65536

// ReaderOption configures a Reader.
type ReaderOption = options.Option[*readerConfig]

type readerConfig struct {
	compression     format.CompressionType
	bufferCapacity  int
	allowIncomplete bool
	cacheEncoded    bool
	codec           codec.Codec
	logger          *zap.Logger
	registerer      prometheus.Registerer
	metricLabels    prometheus.Labels
}

// WithCompression sets the framing of the source. The default, format.CompressionAuto,
// detects it from the first bytes; format.CompressionNone reads the source as raw IR.
func WithCompression(compression format.CompressionType) ReaderOption {
	return options.New(func(c *readerConfig) error {
		switch compression {
		case format.CompressionNone, format.CompressionZstd, format.CompressionS2,
			format.CompressionLZ4, format.CompressionAuto:
			c.compression = compression
			return nil
		default:
			return fmt.Errorf("%w: %s", errs.ErrInvalidCompression, compression)
		}
	})
}

// WithBufferCapacity sets the initial capacity of the decode buffer.
func WithBufferCapacity(capacity int) ReaderOption {
	return options.New(func(c *readerConfig) error {
		if capacity <= 0 {
			return fmt.Errorf("%w: buffer capacity must be positive, got %d", errs.ErrInvalidArgument, capacity)
		}
		c.bufferCapacity = capacity

		return nil
	})
}

// WithAllowIncompleteStream ends a truncated stream with io.EOF instead of
// errs.ErrStreamExhausted.
func WithAllowIncompleteStream(allow bool) ReaderOption {
	return options.NoError(func(c *readerConfig) {
		c.allowIncomplete = allow
	})
}

// WithCacheEncoded keeps each record's encoded bytes on the record.
func WithCacheEncoded(cache bool) ReaderOption {
	return options.NoError(func(c *readerConfig) {
		c.cacheEncoded = cache
	})
}

// WithCodec replaces the four-byte IR codec.
func WithCodec(c codec.Codec) ReaderOption {
	return options.New(func(cfg *readerConfig) error {
		if c == nil {
			return fmt.Errorf("%w: nil codec", errs.ErrInvalidArgument)
		}
		cfg.codec = c

		return nil
	})
}

// WithLogger sets the logger; nil keeps the no-op logger.
func WithLogger(logger *zap.Logger) ReaderOption {
	return options.NoError(func(c *readerConfig) {
		if logger != nil {
			c.logger = logger
		}
	})
}

// WithMetrics registers a collector of the reader's activity with reg. The collector is
// unregistered by Close. labels are attached to every metric and must be unique among
// the readers sharing reg.
func WithMetrics(reg prometheus.Registerer, labels prometheus.Labels) ReaderOption {
	return options.NoError(func(c *readerConfig) {
		c.registerer = reg
		c.metricLabels = labels
	})
}
