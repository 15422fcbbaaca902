package material

import (
	"strings"

	"github.com/pkg/errors"
)

// Channel packs up to four source channel numbers, one per byte, unused bytes are ChannelNone.
type Channel uint32

const (
	chR    byte = 0
	chG    byte = 1
	chB    byte = 2
	chA    byte = 3
	chNone byte = 0xff
)

func FromChannels(chs ...byte) Channel {
	c := Channel(0xffffffff)
	for i, ch := range chs {
		c &^= 0xff << (8 * i)
		c |= Channel(ch) << (8 * i)
	}
	return c
}

var (
	ChannelR    = FromChannels(chR)
	ChannelG    = FromChannels(chG)
	ChannelB    = FromChannels(chB)
	ChannelA    = FromChannels(chA)
	ChannelRG   = FromChannels(chR, chG)
	ChannelAG   = FromChannels(chA, chG)
	ChannelRGB  = FromChannels(chR, chG, chB)
	ChannelRGBA = FromChannels(chR, chG, chB, chA)
	ChannelNone = Channel(0xffffffff)

	ErrBadChannel = errors.New("bad channel mapping")
)

func (c Channel) Channels() []byte {
	result := make([]byte, 0, 4)
	for i := 0; i < 4; i++ {
		ch := byte(c >> (8 * i))
		if ch == chNone {
			break
		}
		result = append(result, ch)
	}
	return result
}

func (c Channel) Count() int { return len(c.Channels()) }

// First returns first channel number, or R for empty mapping.
func (c Channel) First() byte {
	if chs := c.Channels(); len(chs) != 0 {
		return chs[0]
	}
	return chR
}

const channelLetters = "RGBA"

func (c Channel) String() string {
	chs := c.Channels()
	if len(chs) == 0 {
		return "NONE"
	}
	var sb strings.Builder
	for _, ch := range chs {
		sb.WriteByte(channelLetters[ch])
	}
	return sb.String()
}

// ParseChannel reads letter form like "RGB" or "AG".
func ParseChannel(s string) (Channel, error) {
	if s == "" || len(s) > 4 {
		return ChannelNone, errors.Wrapf(ErrBadChannel, "%q", s)
	}
	chs := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		idx := strings.IndexByte(channelLetters, s[i]&^0x20)
		if idx < 0 {
			return ChannelNone, errors.Wrapf(ErrBadChannel, "%q", s)
		}
		chs[i] = byte(idx)
	}
	return FromChannels(chs...), nil
}

// Input is one shader semantic read from channels of a texture.
type Input struct {
	Channel Channel
	Name    string
}
