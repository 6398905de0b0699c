package sensor

import (
	"encoding/binary"
	"fmt"
	"time"

	"periph.io/x/conn/v3/i2c"
)

// register pointers
const (
	regConversion = 0x00
	regConfig     = 0x01
)

const (
	cfgStartSingle = 1 << 15
	cfgSingleShot  = 1 << 8
	cfgCompDisable = 0x3
	cfgPGA4096     = 0x1 << 9 // ±4.096V

	ads1115FullScale = 4.096
	defaultDataRate  = 0x4 // 128 SPS
)

// data rate bits by samples per second
var dataRates = map[int]uint16{
	8: 0x0, 16: 0x1, 32: 0x2, 64: 0x3, 128: 0x4, 250: 0x5, 475: 0x6, 860: 0x7,
}

// ADS1115 reads single-shot conversions from one ADS1115 on a shared bus.
// Channels are single-ended (AINx against GND).
type ADS1115 struct {
	dev        *i2c.Dev
	sampleRate int
	fullScale  float64
}

func NewADS1115(bus i2c.Bus, addr uint16, sampleRate int) *ADS1115 {
	return &ADS1115{dev: &i2c.Dev{Addr: addr, Bus: bus}, sampleRate: sampleRate, fullScale: ads1115FullScale}
}

// ReadVolts triggers a conversion on channel and returns the input voltage.
func (a *ADS1115) ReadVolts(channel int) (float64, error) {
	msb, lsb, err := a.configForChannel(channel, a.sampleRate)
	if err != nil {
		return 0, err
	}
	if err := a.dev.Tx([]byte{regConfig, msb, lsb}, nil); err != nil {
		return 0, fmt.Errorf("ads1115 write config: %w", err)
	}
	time.Sleep(conversionTime(a.sampleRate))

	var buf [2]byte
	if err := a.dev.Tx([]byte{regConversion}, buf[:]); err != nil {
		return 0, fmt.Errorf("ads1115 read conversion: %w", err)
	}
	raw := int16(binary.BigEndian.Uint16(buf[:]))
	return float64(raw) * a.fullScale / 32768.0, nil
}

// configForChannel builds the config register for a single-ended
// single-shot conversion. Unknown sample rates fall back to 128 SPS.
func (a *ADS1115) configForChannel(channel, sampleRate int) (byte, byte, error) {
	if channel < 0 || channel > 3 {
		return 0, 0, fmt.Errorf("invalid channel %d", channel)
	}
	dr, ok := dataRates[sampleRate]
	if !ok {
		dr = defaultDataRate
	}
	// MUX 100..111 selects AIN0..AIN3 against GND
	mux := uint16(0x4+channel) << 12
	reg := uint16(cfgStartSingle) | mux | cfgPGA4096 | cfgSingleShot | dr<<5 | cfgCompDisable
	return byte(reg >> 8), byte(reg), nil
}

// conversionTime is one sample period plus a small margin.
func conversionTime(sampleRate int) time.Duration {
	if sampleRate <= 0 {
		sampleRate = 128
	}
	return time.Second/time.Duration(sampleRate) + 2*time.Millisecond
}
