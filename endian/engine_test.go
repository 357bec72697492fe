package endian

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEngines(t *testing.T) {
	require.Equal(t, binary.BigEndian, GetBigEndianEngine())
	require.Equal(t, binary.LittleEndian, GetLittleEndianEngine())
	require.Equal(t, GetBigEndianEngine(), GetIREngine())
}

func TestIREngine_AppendRead(t *testing.T) {
	engine := GetIREngine()

	buf := engine.AppendUint16(nil, 0x1234)
	buf = engine.AppendUint32(buf, 0xDEADBEEF)
	require.Equal(t, []byte{0x12, 0x34, 0xDE, 0xAD, 0xBE, 0xEF}, buf)
	require.Equal(t, uint16(0x1234), engine.Uint16(buf[0:2]))
	require.Equal(t, uint32(0xDEADBEEF), engine.Uint32(buf[2:6]))
}
