package voice

import (
	"context"
	"sync"

	"github.com/orallm/voicebot/internal/logging"
	"github.com/orallm/voicebot/internal/metrics"
)

// Transport joins a voice channel and exposes its audio endpoints.
type Transport interface {
	Join(ctx context.Context, guildID, channelID string) (FrameSource, AudioSender, error)
}

// Manager owns one session per voice channel.
type Manager struct {
	transport Transport
	base      SessionConfig
	pipe      Pipeline

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager builds a manager; base supplies the tunables every session
// shares (the channel and guild IDs are filled per join).
func NewManager(transport Transport, base SessionConfig, pipe Pipeline) *Manager {
	return &Manager{
		transport: transport,
		base:      base,
		pipe:      pipe,
		sessions:  make(map[string]*Session),
	}
}

// Join connects to the channel and starts a session. A second join for the
// same channel fails with ErrSessionAlreadyActive.
func (m *Manager) Join(ctx context.Context, guildID, channelID string) (*Session, error) {
	m.mu.Lock()
	if _, ok := m.sessions[channelID]; ok {
		m.mu.Unlock()
		return nil, ErrSessionAlreadyActive
	}
	// reserve the slot before the (slow) transport join
	m.sessions[channelID] = nil
	m.mu.Unlock()

	source, sender, err := m.transport.Join(ctx, guildID, channelID)
	if err != nil {
		m.mu.Lock()
		delete(m.sessions, channelID)
		m.mu.Unlock()
		return nil, err
	}

	cfg := m.base
	cfg.GuildID = guildID
	cfg.ChannelID = channelID
	sess := NewSession(cfg, source, sender, m.pipe)
	sess.onLost = func() { m.HandleConnectionLost(channelID) }

	m.mu.Lock()
	m.sessions[channelID] = sess
	m.mu.Unlock()

	if err := sess.Start(); err != nil {
		m.remove(channelID)
		return nil, err
	}
	metrics.SessionOpened()
	return sess, nil
}

// Leave closes the channel's session.
func (m *Manager) Leave(channelID string) error {
	sess := m.remove(channelID)
	if sess == nil {
		return ErrSessionClosed
	}
	err := sess.Close()
	metrics.SessionClosed()
	return err
}

// HandleConnectionLost tears down a session whose transport dropped.
// In-flight turns are cancelled and the session reaches closed.
func (m *Manager) HandleConnectionLost(channelID string) {
	sess := m.remove(channelID)
	if sess == nil {
		return
	}
	logging.Warnw("voice: connection lost, closing session", "channel_id", channelID)
	_ = sess.Close()
	metrics.SessionClosed()
}

// CloseAll shuts every session down, for process shutdown.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for id, s := range m.sessions {
		if s != nil {
			sessions = append(sessions, s)
		}
		delete(m.sessions, id)
	}
	m.mu.Unlock()
	for _, s := range sessions {
		_ = s.Close()
		metrics.SessionClosed()
	}
}

// Session returns the live session for a channel, or nil.
func (m *Manager) Session(channelID string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[channelID]
}

func (m *Manager) remove(channelID string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess := m.sessions[channelID]
	delete(m.sessions, channelID)
	return sess
}
