// Package proof turns a claimed Match into an on-chain Groth16 proof: it
// assembles the circuit witness, invokes the external WASM witness
// calculator and proving key, and re-encodes the result into the fixed
// 256-byte on-chain proof layout.
package proof

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/iden3/go-rapidsnark/prover"
	"github.com/iden3/go-rapidsnark/witness"
	"go.uber.org/zap"

	"github.com/duskpool/core/pkg/commitment"
	"github.com/duskpool/core/pkg/errs"
	"github.com/duskpool/core/pkg/field"
	"github.com/duskpool/core/pkg/matchqueue"
	"github.com/duskpool/core/pkg/metrics"
	"github.com/duskpool/core/pkg/orderbook"
	"github.com/duskpool/core/pkg/settlement"
	"github.com/duskpool/core/pkg/whitelist"
)

// Artifacts holds the two circuit artifacts loaded once at startup: the
// WASM witness generator and the Groth16 proving key. Both are read-only
// for the lifetime of the process.
type Artifacts struct {
	WasmBytes []byte
	ZkeyBytes []byte
}

// LoadArtifacts reads the witness generator and proving key from disk.
// Production deployments may prefer memory-mapping the (typically large)
// zkey file; this loads it into the process heap once at startup instead,
// which is simpler and still shared read-only across every worker.
func LoadArtifacts(wasmPath, zkeyPath string) (*Artifacts, error) {
	wasmBytes, err := os.ReadFile(wasmPath)
	if err != nil {
		return nil, fmt.Errorf("proof: reading witness generator %q: %w", wasmPath, err)
	}
	zkeyBytes, err := os.ReadFile(zkeyPath)
	if err != nil {
		return nil, fmt.Errorf("proof: reading proving key %q: %w", zkeyPath, err)
	}
	return &Artifacts{WasmBytes: wasmBytes, ZkeyBytes: zkeyBytes}, nil
}

// Result is the outcome of proving one match.
type Result struct {
	MatchID       string
	NullifierHash field.Element
	ProofBytes    [256]byte
	PublicSignals []byte
	Err           *errs.Error
}

// EventSink receives notifications of proof-worker lifecycle transitions
// so a caller (the event bus glue) can publish them without the proof
// package importing the bus directly.
type EventSink interface {
	ProofGenerating(m orderbook.Match)
	ProofGenerated(m orderbook.Match, nullifierHex string)
	ProofFailed(m orderbook.Match, reason string)
}

// WhitelistLookup resolves the data the proof worker needs from the
// current whitelist snapshot for one trader: their idHash leaf value and
// inclusion proof.
type WhitelistLookup func(trader string) (idHash field.Element, proof whitelist.Proof, root field.Element, err error)

// Pool is a bounded set of goroutines draining a matchqueue.Queue. Workers
// hold no order-book state; they only borrow the artifacts and whatever
// whitelist snapshot WhitelistLookup resolves at call time.
type Pool struct {
	size        int
	artifacts   *Artifacts
	queue       *matchqueue.Queue
	coordinator *settlement.Coordinator
	lookup      WhitelistLookup
	logger      *zap.SugaredLogger
	results     chan Result
	sink        EventSink
	metrics     *metrics.Metrics
}

// NewPool constructs a proof worker pool. size is typically the CPU count. m
// may be nil in tests that don't care about metrics.
func NewPool(size int, artifacts *Artifacts, queue *matchqueue.Queue, coordinator *settlement.Coordinator, lookup WhitelistLookup, m *metrics.Metrics, logger *zap.SugaredLogger) *Pool {
	return &Pool{
		size:        size,
		artifacts:   artifacts,
		queue:       queue,
		coordinator: coordinator,
		lookup:      lookup,
		logger:      logger,
		results:     make(chan Result, size*2),
		metrics:     m,
	}
}

// Results exposes completed proof outcomes for the event bus to publish.
func (p *Pool) Results() <-chan Result { return p.results }

// SetEventSink wires an optional notifier for proof lifecycle transitions.
// Nil is safe and disables notification.
func (p *Pool) SetEventSink(sink EventSink) { p.sink = sink }

// Run starts size worker goroutines, each looping until ctx is canceled.
// An idle worker blocks on the queue's Notify channel instead of spinning.
func (p *Pool) Run(ctx context.Context) {
	for i := 0; i < p.size; i++ {
		go p.runWorker(ctx)
	}
}

func (p *Pool) runWorker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		m, ok := p.queue.Pop()
		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-p.queue.Notify:
				continue
			case <-time.After(time.Second):
				continue
			}
		}

		p.processMatch(m)
	}
}

// processMatch runs the strictly sequential per-match steps: consistency
// check, witness assembly, witness calculation, Groth16 proving, and
// result encoding. Matches proceed through the pool in any order; there is
// no ordering guarantee across different matches.
func (p *Pool) processMatch(m orderbook.Match) {
	if err := p.coordinator.TransitionProving(m.MatchID); err != nil {
		p.logger.Warnw("cannot start proving", "matchId", m.MatchID, "error", err)
		return
	}
	if p.sink != nil {
		p.sink.ProofGenerating(m)
	}

	start := time.Now()
	result := p.prove(m)
	if p.metrics != nil {
		p.metrics.ProofDuration.Observe(time.Since(start).Seconds())
	}
	if result.Err != nil {
		if err := p.coordinator.TransitionProofFailed(m.MatchID, result.Err.Message); err != nil {
			p.logger.Errorw("recording proof failure", "matchId", m.MatchID, "error", err)
		}
		if p.sink != nil {
			p.sink.ProofFailed(m, result.Err.Message)
		}
		p.results <- result
		return
	}

	if err := p.coordinator.TransitionProofGenerated(m.MatchID, result.NullifierHash.Hex(), result.ProofBytes[:], result.PublicSignals); err != nil {
		p.logger.Errorw("recording generated proof", "matchId", m.MatchID, "error", err)
	}
	if p.sink != nil {
		p.sink.ProofGenerated(m, result.NullifierHash.Hex())
	}
	p.results <- result
}

func (p *Pool) prove(m orderbook.Match) Result {
	assetHash, err := commitment.HashAsset(m.BuyOrder.AssetAddress)
	if err != nil {
		return Result{MatchID: m.MatchID, Err: errs.ForMatchf(errs.ProofFailed, m.MatchID, "hashing asset: %v", err)}
	}

	buyerIDHash, buyerProof, whitelistRoot, err := p.lookup(m.BuyOrder.Trader)
	if err != nil {
		return Result{MatchID: m.MatchID, Err: errs.ForMatchf(errs.ProofFailed, m.MatchID, "resolving buyer whitelist proof: %v", err)}
	}
	sellerIDHash, sellerProof, _, err := p.lookup(m.SellOrder.Trader)
	if err != nil {
		return Result{MatchID: m.MatchID, Err: errs.ForMatchf(errs.ProofFailed, m.MatchID, "resolving seller whitelist proof: %v", err)}
	}

	// Hard consistency check: the matcher always emits equal quantities, but
	// it prices a crossing pair at the midpoint, so the execution price
	// equals both order prices only when buy and sell prices are equal. A
	// mismatch here means the
	// commitments were not bound to the values the circuit is about to
	// receive, so the witness would be rejected on-chain regardless —
	// fail fast with a distinguishing reason instead of burning a proving
	// pass.
	if m.ExecutionPrice != m.BuyOrder.Price || m.ExecutionPrice != m.SellOrder.Price {
		return Result{MatchID: m.MatchID, Err: errs.ForMatch(errs.ProofFailed, m.MatchID, "commitment mismatch: execution price does not equal both resting order prices")}
	}
	if m.ExecutionQuantity != m.BuyOrder.Quantity || m.ExecutionQuantity != m.SellOrder.Quantity {
		return Result{MatchID: m.MatchID, Err: errs.ForMatch(errs.ProofFailed, m.MatchID, "commitment mismatch: execution quantity does not equal both resting order quantities")}
	}

	inputs := BuildInputs(m, assetHash, buyerIDHash, sellerIDHash, buyerProof, sellerProof, whitelistRoot)

	calculator, err := witness.NewCalculator(p.artifacts.WasmBytes)
	if err != nil {
		return Result{MatchID: m.MatchID, Err: errs.ForMatchf(errs.ProofFailed, m.MatchID, "loading witness calculator: %v", err)}
	}
	wtns, err := calculator.CalculateWTNSBin(inputs.ToCircuitMap(), true)
	if err != nil {
		return Result{MatchID: m.MatchID, Err: errs.ForMatchf(errs.ProofFailed, m.MatchID, "calculating witness: %v", err)}
	}

	proofJSON, publicJSON, err := prover.Groth16Prover(p.artifacts.ZkeyBytes, wtns)
	if err != nil {
		return Result{MatchID: m.MatchID, Err: errs.ForMatchf(errs.ProofFailed, m.MatchID, "generating proof: %v", err)}
	}

	var parsedProof groth16Proof
	if err := json.Unmarshal([]byte(proofJSON), &parsedProof); err != nil {
		return Result{MatchID: m.MatchID, Err: errs.ForMatchf(errs.ProofFailed, m.MatchID, "parsing proof json: %v", err)}
	}
	var publicSignals []string
	if err := json.Unmarshal([]byte(publicJSON), &publicSignals); err != nil {
		return Result{MatchID: m.MatchID, Err: errs.ForMatchf(errs.ProofFailed, m.MatchID, "parsing public signals json: %v", err)}
	}
	if len(publicSignals) == 0 {
		return Result{MatchID: m.MatchID, Err: errs.ForMatch(errs.ProofFailed, m.MatchID, "merkle verification failed: circuit returned no public signals")}
	}

	proofBytes, err := EncodeProof(&parsedProof)
	if err != nil {
		return Result{MatchID: m.MatchID, Err: errs.ForMatchf(errs.ProofFailed, m.MatchID, "encoding proof: %v", err)}
	}
	publicSignalBytes, err := EncodePublicSignals(publicSignals)
	if err != nil {
		return Result{MatchID: m.MatchID, Err: errs.ForMatchf(errs.ProofFailed, m.MatchID, "encoding public signals: %v", err)}
	}

	nullifierHash, err := field.FromDecimalString(publicSignals[len(publicSignals)-1])
	if err != nil {
		return Result{MatchID: m.MatchID, Err: errs.ForMatchf(errs.ProofFailed, m.MatchID, "parsing nullifier: %v", err)}
	}

	return Result{
		MatchID:       m.MatchID,
		NullifierHash: nullifierHash,
		ProofBytes:    proofBytes,
		PublicSignals: publicSignalBytes,
	}
}
