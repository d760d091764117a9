package pion

import (
	"errors"
	"fmt"
	"sync"

	"github.com/pion/webrtc/v3"
	"go.uber.org/multierr"

	"github.com/vshulcz/rtcobserver/internal/ports"
)

// Loopback is a pair of in-process peer connections negotiated against each
// other with one data channel. It gives an agent live stats without a
// signaling server.
type Loopback struct {
	offerer  *webrtc.PeerConnection
	answerer *webrtc.PeerConnection
	once     sync.Once
}

// NewLoopback creates both peers and completes the offer/answer exchange.
// ICE candidates are trickled directly between the peers.
func NewLoopback(cfg webrtc.Configuration) (_ *Loopback, err error) {
	offerer, err := webrtc.NewPeerConnection(cfg)
	if err != nil {
		return nil, fmt.Errorf("offerer: %w", err)
	}
	answerer, err := webrtc.NewPeerConnection(cfg)
	if err != nil {
		return nil, multierr.Append(fmt.Errorf("answerer: %w", err), offerer.Close())
	}
	l := &Loopback{offerer: offerer, answerer: answerer}
	defer func() {
		if err != nil {
			err = multierr.Append(err, l.Close())
		}
	}()

	trickle(offerer, answerer)
	trickle(answerer, offerer)

	if _, err := offerer.CreateDataChannel("rtcobserver", nil); err != nil {
		return nil, fmt.Errorf("data channel: %w", err)
	}
	offer, err := offerer.CreateOffer(nil)
	if err != nil {
		return nil, fmt.Errorf("create offer: %w", err)
	}
	if err := offerer.SetLocalDescription(offer); err != nil {
		return nil, fmt.Errorf("set offer: %w", err)
	}
	if err := answerer.SetRemoteDescription(offer); err != nil {
		return nil, fmt.Errorf("apply offer: %w", err)
	}
	answer, err := answerer.CreateAnswer(nil)
	if err != nil {
		return nil, fmt.Errorf("create answer: %w", err)
	}
	if err := answerer.SetLocalDescription(answer); err != nil {
		return nil, fmt.Errorf("set answer: %w", err)
	}
	if err := offerer.SetRemoteDescription(answer); err != nil {
		return nil, fmt.Errorf("apply answer: %w", err)
	}
	return l, nil
}

func trickle(from, to *webrtc.PeerConnection) {
	from.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil {
			return
		}
		// Candidates gathered before the remote description is set are
		// rejected by pion; the later ones are enough on loopback.
		_ = to.AddICECandidate(c.ToJSON())
	})
}

// Sources returns one stats source per peer.
func (l *Loopback) Sources() []ports.StatsSource {
	return []ports.StatsSource{
		New("loopback-offerer", "offerer", l.offerer),
		New("loopback-answerer", "answerer", l.answerer),
	}
}

func (l *Loopback) Close() error {
	var err error
	l.once.Do(func() {
		err = errors.Join(l.offerer.Close(), l.answerer.Close())
	})
	return err
}
