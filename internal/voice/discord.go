package voice

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/orallm/voicebot/internal/audio"
	"github.com/orallm/voicebot/internal/logging"
)

// DiscordTransport adapts a discordgo session to the Transport interface.
type DiscordTransport struct {
	Session *discordgo.Session
}

// Join connects to the voice channel unmuted and undeafened so the bot can
// both hear and speak.
func (t *DiscordTransport) Join(ctx context.Context, guildID, channelID string) (FrameSource, AudioSender, error) {
	vc, err := t.Session.ChannelVoiceJoin(guildID, channelID, false, false)
	if err != nil {
		return nil, nil, err
	}
	src := newDiscordSource(vc)
	vc.AddHandler(src.handleSpeaking)
	go src.run()
	return src, &discordSender{vc: vc}, nil
}

// discordSource decodes incoming opus packets into speaker-attributed
// frames. SSRC to user mapping comes from speaking updates; packets whose
// SSRC has not been mapped yet are dropped.
type discordSource struct {
	vc     *discordgo.VoiceConnection
	frames chan Frame
	stop   chan struct{}
	once   sync.Once

	mu       sync.Mutex
	users    map[uint32]string
	decoders map[uint32]audio.Decoder

	opusWarned bool
}

func newDiscordSource(vc *discordgo.VoiceConnection) *discordSource {
	return &discordSource{
		vc:       vc,
		frames:   make(chan Frame, 256),
		stop:     make(chan struct{}),
		users:    make(map[uint32]string),
		decoders: make(map[uint32]audio.Decoder),
	}
}

func (d *discordSource) Frames() <-chan Frame { return d.frames }

func (d *discordSource) Close() error {
	var err error
	d.once.Do(func() {
		close(d.stop)
		err = d.vc.Disconnect()
	})
	return err
}

func (d *discordSource) handleSpeaking(vc *discordgo.VoiceConnection, su *discordgo.VoiceSpeakingUpdate) {
	d.mu.Lock()
	d.users[uint32(su.SSRC)] = su.UserID
	d.mu.Unlock()
	logging.Debugw("voice: mapped ssrc to user", "ssrc", su.SSRC, "user_id", su.UserID)
}

func (d *discordSource) run() {
	defer close(d.frames)
	for {
		select {
		case <-d.stop:
			return
		case pkt, ok := <-d.vc.OpusRecv:
			if !ok {
				return
			}
			d.handlePacket(pkt, time.Now())
		}
	}
}

func (d *discordSource) handlePacket(pkt *discordgo.Packet, now time.Time) {
	d.mu.Lock()
	userID := d.users[pkt.SSRC]
	dec := d.decoders[pkt.SSRC]
	d.mu.Unlock()
	if userID == "" {
		return
	}

	if dec == nil {
		var err error
		dec, err = audio.NewOpusDecoder()
		if err != nil {
			if errors.Is(err, audio.ErrOpusUnavailable) && !d.opusWarned {
				d.opusWarned = true
				logging.Errorw("voice: cannot decode incoming audio", "err", err)
			}
			return
		}
		d.mu.Lock()
		d.decoders[pkt.SSRC] = dec
		d.mu.Unlock()
	}

	pcm, err := dec.Decode(pkt.Opus)
	if err != nil {
		logging.Debugw("voice: opus decode failed", "ssrc", pkt.SSRC, "err", err)
		return
	}

	select {
	case d.frames <- Frame{SpeakerID: userID, PCM: pcm, Received: now}:
	case <-d.stop:
	default:
		// a stalled consumer must not back-pressure the voice websocket
		logging.Debugw("voice: frame dropped, consumer behind", "ssrc", pkt.SSRC)
	}
}

// discordSender pushes encoded frames onto the voice connection. discordgo
// paces OpusSend at frame rate, so writes here just keep the channel fed.
type discordSender struct {
	vc *discordgo.VoiceConnection

	mu  sync.Mutex
	enc audio.Encoder
}

func (d *discordSender) Speaking(on bool) error {
	return d.vc.Speaking(on)
}

func (d *discordSender) Send(ctx context.Context, pcm []int16, sampleRate int) error {
	if sampleRate != audio.SampleRate {
		pcm = audio.Resample(pcm, sampleRate, audio.SampleRate)
	}

	d.mu.Lock()
	enc := d.enc
	if enc == nil {
		var err error
		enc, err = audio.NewOpusEncoder()
		if err != nil {
			d.mu.Unlock()
			return err
		}
		d.enc = enc
	}
	d.mu.Unlock()

	frame := make([]int16, audio.FrameSamples)
	for off := 0; off < len(pcm); off += audio.FrameSamples {
		end := off + audio.FrameSamples
		if end > len(pcm) {
			end = len(pcm)
		}
		n := copy(frame, pcm[off:end])
		for i := n; i < len(frame); i++ {
			frame[i] = 0
		}
		packet, err := enc.Encode(frame)
		if err != nil {
			return err
		}
		select {
		case d.vc.OpusSend <- packet:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}
