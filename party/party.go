//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

// Package party implements a compute party. The two parties hold
// additive shares of the user and item matrices. Each party first
// receives its half of the correlated randomness from the dealer,
// then connects to its peer and processes the query batch in
// lockstep: the user row is updated with a secure dot product and
// scalar multiplications, and the queried item row is updated through
// a retargeted point-function key so that neither party learns which
// row changed.
package party

import (
	"errors"
	"fmt"
	"time"

	"github.com/markkurossi/obliv/dpf"
	"github.com/markkurossi/obliv/p2p"
	"github.com/markkurossi/obliv/share"
	"github.com/markkurossi/obliv/store"
	"github.com/markkurossi/text/superscript"
)

// Protocol errors.
var (
	// ErrWire is reported when the dealer stream is truncated or
	// malformed.
	ErrWire = errors.New("wire error")

	// ErrProtocol is reported when the peers fall out of lockstep.
	ErrProtocol = errors.New("protocol error")
)

// Barrier codes exchanged on the peer channel.
const (
	barrierPrep  = 1
	barrierQuery = 2
)

// Party implements one compute party.
type Party struct {
	role    int
	params  *store.Params
	queries []store.Query
	uPath   string
	vPath   string
	verbose bool

	timing  *Timing
	stats   p2p.IOStats
	corrs   []share.Corr
	triples [][]share.Triple
	keys    []*dpf.Key
	items   *store.Matrix
}

// New creates a compute party. The queries hold this party's shares
// of the query batch; uPath and vPath name the matrix share files the
// party updates in place.
func New(role int, params *store.Params, queries []store.Query,
	uPath, vPath string, verbose bool) (*Party, error) {

	if role != 0 && role != 1 {
		return nil, fmt.Errorf("party: invalid role %d", role)
	}
	if len(queries) != params.Q {
		return nil, fmt.Errorf("party: %d queries, parameters say %d",
			len(queries), params.Q)
	}
	return &Party{
		role:    role,
		params:  params,
		queries: queries,
		uPath:   uPath,
		vPath:   vPath,
		verbose: verbose,
		stats:   p2p.NewIOStats(),
	}, nil
}

// IDString returns the party role as string.
func (p *Party) IDString() string {
	return superscript.Itoa(p.role)
}

// Debugf prints debugging message if verbose output is enabled for
// this Party.
func (p *Party) Debugf(format string, a ...interface{}) {
	if !p.verbose {
		return
	}
	fmt.Printf(format, a...)
}

// Run executes the protocol. The dealer connection is consumed and
// closed once the preprocessing material is read; connectPeer is
// called after that to open the channel to the other compute party.
func (p *Party) Run(dealer *p2p.Conn,
	connectPeer func() (*p2p.Conn, error)) error {

	if err := p.loadItems(); err != nil {
		return err
	}
	if _, err := p.loadUsers(); err != nil {
		return err
	}
	p.timing = NewTiming()

	p.Debugf("P%s: preprocessing...\n", p.IDString())
	var xfer uint64
	if err := p.recvCorrs(dealer); err != nil {
		return err
	}
	xfer = p.sample(dealer, "Recv shares", xfer)
	if err := p.recvTriples(dealer); err != nil {
		return err
	}
	xfer = p.sample(dealer, "Recv triples", xfer)
	if err := p.recvKeys(dealer); err != nil {
		return err
	}
	p.sample(dealer, "Recv keys", xfer)

	dealerStats := dealer.Stats
	if err := dealer.Close(); err != nil {
		return err
	}
	p.Debugf("P%s: preprocessing done: %s from dealer\n",
		p.IDString(), FileSize(dealerStats.Sum()))

	peer, err := connectPeer()
	if err != nil {
		return err
	}
	defer peer.Close()
	p.timing.Sample("Connect", nil)

	if err := p.barrier(peer, barrierPrep, 0); err != nil {
		return err
	}
	for qi, query := range p.queries {
		if err := p.barrier(peer, barrierQuery, qi); err != nil {
			return err
		}
		if err := p.processQuery(peer, qi, query); err != nil {
			return fmt.Errorf("query %d: %w", qi, err)
		}
	}
	p.stats = dealerStats.Add(peer.Stats)
	return nil
}

// processQuery updates the user row and the queried item row with the
// query's preprocessing material.
func (p *Party) processQuery(peer *p2p.Conn, qi int, query store.Query) error {
	prev := peer.Stats.Sum()

	users, err := p.loadUsers()
	if err != nil {
		return err
	}
	next, scaled, err := share.UserUpdate(peer, p.role, users.Row(query.User),
		query.V, p.corrs[qi], p.triples[qi])
	if err != nil {
		return err
	}
	if err := store.UpdateRow(p.uPath, query.User, next); err != nil {
		return err
	}
	userDone := time.Now()

	err = share.ItemUpdate(peer, p.role, p.keys[qi], scaled, p.items.Data)
	if err != nil {
		return err
	}
	if err := p.items.Write(p.vPath); err != nil {
		return err
	}

	sample := p.timing.Sample(fmt.Sprintf("Query %d", qi), []string{
		FileSize(peer.Stats.Sum() - prev).String(),
	})
	sample.SubSample("User row", userDone)
	sample.SubSample("Item rows", time.Now())

	p.Debugf("P%s: query %d: user %d updated\n", p.IDString(), qi, query.User)
	return nil
}

// barrier synchronizes the parties before a phase: both send the code
// and step index and verify the peer is at the same step.
func (p *Party) barrier(conn *p2p.Conn, code, index int) error {
	var peerCode, peerIndex int
	var err error

	if p.role == 0 {
		if err = sendBarrier(conn, code, index); err != nil {
			return err
		}
		peerCode, peerIndex, err = recvBarrier(conn)
		if err != nil {
			return err
		}
	} else {
		peerCode, peerIndex, err = recvBarrier(conn)
		if err != nil {
			return err
		}
		if err = sendBarrier(conn, code, index); err != nil {
			return err
		}
	}
	if peerCode != code || peerIndex != index {
		return fmt.Errorf("%w: barrier %d/%d, peer at %d/%d",
			ErrProtocol, code, index, peerCode, peerIndex)
	}
	return nil
}

func sendBarrier(conn *p2p.Conn, code, index int) error {
	if err := conn.SendUint32(code); err != nil {
		return err
	}
	if err := conn.SendUint32(index); err != nil {
		return err
	}
	return conn.Flush()
}

func recvBarrier(conn *p2p.Conn) (int, int, error) {
	code, err := conn.ReceiveUint32()
	if err != nil {
		return 0, 0, err
	}
	index, err := conn.ReceiveUint32()
	if err != nil {
		return 0, 0, err
	}
	return code, index, nil
}

// loadItems reads and checks the item matrix share. The matrix is
// kept in memory for the point-function evaluations and written back
// after every query.
func (p *Party) loadItems() error {
	m, err := store.ReadMatrix(p.vPath)
	if err != nil {
		return err
	}
	if m.Rows != p.params.N || m.Cols != p.params.K {
		return fmt.Errorf("party: item share %dx%d, parameters say %dx%d: %w",
			m.Rows, m.Cols, p.params.N, p.params.K, store.ErrConfig)
	}
	p.items = m
	return nil
}

// loadUsers reads and checks the user matrix share.
func (p *Party) loadUsers() (*store.Matrix, error) {
	m, err := store.ReadMatrix(p.uPath)
	if err != nil {
		return nil, err
	}
	if m.Rows != p.params.M || m.Cols != p.params.K {
		return nil, fmt.Errorf(
			"party: user share %dx%d, parameters say %dx%d: %w",
			m.Rows, m.Cols, p.params.M, p.params.K, store.ErrConfig)
	}
	return m, nil
}

// sample records a preprocessing phase with the transfer since the
// previous phase. It returns the new transfer total.
func (p *Party) sample(conn *p2p.Conn, label string, prev uint64) uint64 {
	sum := conn.Stats.Sum()
	p.timing.Sample(label, []string{
		FileSize(sum - prev).String(),
	})
	return sum
}

// Report prints the timing report of the last run.
func (p *Party) Report() {
	if p.timing == nil {
		return
	}
	p.timing.Print(p.stats)
}
