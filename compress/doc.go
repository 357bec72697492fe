// Package compress provides streaming decompression and compression for the framings IR
// streams are commonly stored in.
//
// IR streams are usually written through a general purpose compressor. This package
// supports:
//   - None: the raw IR bytes
//   - Zstd: Zstandard frames, the most common framing of IR files
//   - S2: S2 (and Snappy) stream framing
//   - LZ4: LZ4 frames
//
// # Architecture
//
// The package defines three core interfaces:
//
//	type Decompressor interface {
//	    NewReader(r io.Reader) (io.ReadCloser, error)
//	}
//
//	type Compressor interface {
//	    NewWriter(w io.Writer) (io.WriteCloser, error)
//	}
//
//	type Codec interface {
//	    Compressor
//	    Decompressor
//	    Type() format.CompressionType
//	}
//
// # Detection
//
// NewReader with format.CompressionAuto peeks at the first DetectLength bytes of the
// source and picks the codec whose frame magic matches. A source that matches none of
// them is read as uncompressed IR:
//
//	r, err := compress.NewReader(format.CompressionAuto, file)
//	if err != nil {
//	    return err
//	}
//	defer r.Close()
//
//	dec := decoder.New(r, fourbyte.New())
//
// # Memory Management
//
// Zstd decoders and encoders and LZ4 frame readers are pooled. Closing a reader or writer
// returns its state to the pool, so a Reader must be closed once the stream is done.
//
// # Thread Safety
//
// Codecs are stateless values and may be shared across goroutines. The readers and writers
// they create are not safe for concurrent use.
package compress
