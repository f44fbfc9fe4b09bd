// Package submitter serializes transaction submission against nonce conflicts: any number of
// callers may request a transaction be signed and submitted concurrently, but two transactions
// sharing a signer are never in flight at once, since a second submission before the first's
// nonce is consumed on-chain would either collide or be rejected. It also drives the optional
// confidentiality and inclusion-proof steps a submission can ask for: encrypting the call under
// the runtime's call data public key, and, for EVM methods, re-encoding and signing the
// transaction as a standard Ethereum transaction instead of an Oasis-native one.
package submitter

import (
	"bytes"
	"context"
	"fmt"
	"math/big"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	gethCommon "github.com/ethereum/go-ethereum/common"
	gethTypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/oasisprotocol/oasis-core/go/common/cbor"
	"github.com/oasisprotocol/oasis-core/go/common/crypto/hash"
	"github.com/oasisprotocol/oasis-core/go/common/logging"
	"github.com/oasisprotocol/oasis-core/go/common/quantity"

	"github.com/oasisprotocol/oasis-sdk/client-sdk/go/callformat"
	"github.com/oasisprotocol/oasis-sdk/client-sdk/go/client"
	sdkSignature "github.com/oasisprotocol/oasis-sdk/client-sdk/go/crypto/signature"
	"github.com/oasisprotocol/oasis-sdk/client-sdk/go/modules/accounts"
	"github.com/oasisprotocol/oasis-sdk/client-sdk/go/modules/core"
	"github.com/oasisprotocol/oasis-sdk/client-sdk/go/modules/evm"
	"github.com/oasisprotocol/oasis-sdk/client-sdk/go/types"
	"github.com/oasisprotocol/oasis-sdk/scheduler/host"
)

var logger = logging.GetLogger("submitter")

// GasPriceInflation is applied to an estimated gas limit before it is attached to a
// transaction's fee, giving the chain's gas price room to move between estimation and
// inclusion without the transaction being rejected for underpaying.
const GasPriceInflation = 1.2

// DefaultTimeout bounds how long Submit waits for a transaction to be resolved before giving up,
// matching the ROFL app client's own default wait deadline.
const DefaultTimeout = 60 * time.Second

// evmMethodCall and evmMethodCreate name the two EVM module methods that can be re-encoded as a
// standard Ethereum transaction instead of an Oasis-native one.
const (
	evmMethodCall   = "evm.Call"
	evmMethodCreate = "evm.Create"
)

// SubmitOpts configures how a transaction is submitted.
type SubmitOpts struct {
	// Timeout bounds how long the submitter waits for the host to resolve the submission. Zero
	// means DefaultTimeout.
	Timeout time.Duration
	// Encrypt wraps the call in an X25519/DeoxysII envelope addressed to the runtime's current
	// call data public key, and unwraps the result the same way.
	Encrypt bool
	// Verify fetches and checks a Merkle inclusion proof for the call's output against the
	// round it was included in.
	Verify bool
	// EthereumFormat re-encodes and signs an evm.Call/evm.Create transaction as a standard
	// Ethereum EIP-2930 transaction instead of an Oasis-native one. It requires exactly one
	// signer, and that signer must implement evm.RSVSigner.
	EthereumFormat bool
	// EVMChainID is the Ethereum-compatible chain ID to sign against. Required when
	// EthereumFormat is set.
	EVMChainID uint64
}

// DefaultSubmitOpts returns the options Submit uses: a bounded wait, encrypted calls, and
// inclusion verification, but no Ethereum-format re-encoding.
func DefaultSubmitOpts() SubmitOpts {
	return SubmitOpts{
		Timeout: DefaultTimeout,
		Encrypt: true,
		Verify:  true,
	}
}

// request is a queued submission awaiting a nonce-conflict-free slot.
type request struct {
	ctx     context.Context
	signers []sdkSignature.Signer
	specs   []types.SignatureAddressSpec
	tx      *types.Transaction
	opts    SubmitOpts
	replyCh chan<- result
}

type result struct {
	out cbor.RawMessage
	err error
}

// signerSetKey identifies a request by its signers' public keys, sorted so that the same set of
// signers produces the same key regardless of the order they were passed in.
func signerSetKey(signers []sdkSignature.Signer) string {
	keys := make([]string, len(signers))
	for i, signer := range signers {
		keys[i] = signer.Public().String()
	}
	sort.Strings(keys)
	return strings.Join(keys, ",")
}

// Submitter signs and submits transactions on behalf of a fixed runtime client, serializing
// submissions that share a signer so nonces are assigned without conflict, while letting
// submissions from disjoint signer sets proceed concurrently.
type Submitter struct {
	rc         client.RuntimeClient
	host       *host.Host
	chainCtx   sdkSignature.Context
	gasPrice   uint64
	denom      types.Denomination
	backoffCfg func() backoff.BackOff

	reqCh    chan request
	doneCh   chan string
	mu       sync.Mutex
	queue    []request
	pending  map[string]bool
	started  bool
	stopOnce sync.Once
	stopCh   chan struct{}
}

// New constructs a Submitter bound to rc for queries and h for submission and inclusion proofs.
// denom names the fee denomination to use for gas payment; gasPrice is a floor applied when the
// queried minimum gas price is zero (as it is on a dev-mode chain).
func New(rc client.RuntimeClient, h *host.Host, chainCtx sdkSignature.Context, denom types.Denomination, gasPrice uint64) *Submitter {
	s := &Submitter{
		rc:       rc,
		host:     h,
		chainCtx: chainCtx,
		gasPrice: gasPrice,
		denom:    denom,
		backoffCfg: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 500 * time.Millisecond
			b.MaxInterval = 30 * time.Second
			b.MaxElapsedTime = 2 * time.Minute
			return b
		},
		reqCh:   make(chan request, 16),
		doneCh:  make(chan string, 16),
		pending: make(map[string]bool),
		stopCh:  make(chan struct{}),
	}
	return s
}

// Start launches the background dispatch loop. It is idempotent.
func (s *Submitter) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true
	go s.run()
}

// Stop halts the dispatch loop. Queued and in-flight requests are abandoned.
func (s *Submitter) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

func (s *Submitter) run() {
	for {
		select {
		case req := <-s.reqCh:
			s.queue = append(s.queue, req)
		case key := <-s.doneCh:
			delete(s.pending, key)
		case <-s.stopCh:
			return
		}
		s.dispatch()
	}
}

func (s *Submitter) dispatch() {
	var remaining []request
	for _, req := range s.queue {
		key := signerSetKey(req.signers)
		busy := false
		for pendingKey := range s.pending {
			for _, pk := range strings.Split(pendingKey, ",") {
				if strings.Contains(","+key+",", ","+pk+",") {
					busy = true
				}
			}
		}
		if busy {
			remaining = append(remaining, req)
			continue
		}
		s.pending[key] = true
		go s.execute(req, key)
	}
	s.queue = remaining
}

func (s *Submitter) execute(req request, key string) {
	out, err := s.multiSignAndSubmit(req.ctx, req.signers, req.specs, req.tx, req.opts)
	req.replyCh <- result{out: out, err: err}
	s.doneCh <- key
}

// Submit signs tx with signer (using spec to describe how it authenticates) and submits it with
// DefaultSubmitOpts, retrying failed nonce lookups with exponential backoff. It blocks until the
// transaction either lands or fails, but never races a concurrent submission from the same
// signer.
func (s *Submitter) Submit(ctx context.Context, signer sdkSignature.Signer, spec types.SignatureAddressSpec, tx *types.Transaction) (cbor.RawMessage, error) {
	return s.SubmitMulti(ctx, []sdkSignature.Signer{signer}, []types.SignatureAddressSpec{spec}, tx, DefaultSubmitOpts())
}

// SubmitMulti is the general submission entrypoint: it accepts one signer per required
// authentication slot (co-signed transactions, e.g. multisig-gated provider actions) and an
// explicit SubmitOpts. Requests are serialized against any other in-flight request that shares at
// least one signer, but requests with disjoint signer sets run concurrently.
func (s *Submitter) SubmitMulti(ctx context.Context, signers []sdkSignature.Signer, specs []types.SignatureAddressSpec, tx *types.Transaction, opts SubmitOpts) (cbor.RawMessage, error) {
	if len(signers) == 0 {
		return nil, fmt.Errorf("submitter: at least one signer is required")
	}
	if len(signers) != len(specs) {
		return nil, fmt.Errorf("submitter: %d signers but %d address specs", len(signers), len(specs))
	}
	if opts.Timeout == 0 {
		opts.Timeout = DefaultTimeout
	}
	s.Start()

	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	replyCh := make(chan result, 1)
	select {
	case s.reqCh <- request{ctx: ctx, signers: signers, specs: specs, tx: tx, opts: opts, replyCh: replyCh}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case r := <-replyCh:
		return r.out, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *Submitter) multiSignAndSubmit(ctx context.Context, signers []sdkSignature.Signer, specs []types.SignatureAddressSpec, tx *types.Transaction, opts SubmitOpts) (cbor.RawMessage, error) {
	if opts.EthereumFormat && len(signers) != 1 {
		return nil, fmt.Errorf("submitter: ethereum-format signing requires a single signer, got %d", len(signers))
	}

	addresses := make([]types.Address, len(specs))
	for i, spec := range specs {
		addresses[i] = types.NewAddress(spec.PublicKey())
	}
	caller := types.CallerAddress{Address: &addresses[0]}

	if tx.AuthInfo.Fee.Gas == 0 {
		gas, err := s.estimateGas(ctx, caller, tx)
		if err != nil {
			return nil, fmt.Errorf("submitter: estimating gas: %w", err)
		}
		if opts.Encrypt {
			params, err := core.NewV1(s.rc).Parameters(ctx, client.RoundLatest)
			if err != nil {
				return nil, fmt.Errorf("submitter: querying core parameters: %w", err)
			}
			gas += params.GasCosts.CallformatX25519Deoxysii
		}
		tx.AuthInfo.Fee.Gas = uint64(float64(gas) * GasPriceInflation)
	}

	var callformatMeta interface{}
	if opts.Encrypt {
		cdpk, err := core.NewV1(s.rc).CallDataPublicKey(ctx)
		if err != nil {
			return nil, fmt.Errorf("submitter: querying call data public key: %w", err)
		}
		encodedCall, meta, err := callformat.EncodeCall(&tx.Call, types.CallFormatEncryptedX25519DeoxysII, &callformat.EncodeConfig{
			PublicKey: &cdpk.PublicKey,
		})
		if err != nil {
			return nil, fmt.Errorf("submitter: encrypting call: %w", err)
		}
		tx.Call = *encodedCall
		callformatMeta = meta
	}

	if tx.AuthInfo.Fee.Amount.Amount.Cmp(quantity.NewFromUint64(0)) == 0 {
		price := quantity.NewFromUint64(s.gasPrice)
		mgp, err := core.NewV1(s.rc).MinGasPrice(ctx)
		if err != nil {
			return nil, fmt.Errorf("submitter: querying minimum gas price: %w", err)
		}
		if p, ok := mgp[s.denom]; ok && !p.IsZero() {
			price = p.Clone()
		}
		if err := price.Mul(quantity.NewFromUint64(tx.AuthInfo.Fee.Gas)); err != nil {
			return nil, fmt.Errorf("submitter: computing fee amount: %w", err)
		}
		tx.AuthInfo.Fee.Amount = types.NewBaseUnits(*price, s.denom)
	}

	var raw []byte
	var txHash hash.Hash
	op := func() error {
		tx.AuthInfo.SignerInfo = nil
		for i, spec := range specs {
			nonce, err := accounts.NewV1(s.rc).Nonce(ctx, client.RoundLatest, addresses[i])
			if err != nil {
				return fmt.Errorf("submitter: querying nonce: %w", err)
			}
			tx.AppendAuthSignature(spec, nonce)
		}

		var err error
		if opts.EthereumFormat {
			raw, txHash, err = encodeEthereumTx(tx, signers[0], opts.EVMChainID)
			if err != nil {
				return backoff.Permanent(fmt.Errorf("submitter: encoding ethereum transaction: %w", err))
			}
			return nil
		}

		ts := tx.PrepareForSigning()
		for _, signer := range signers {
			if err := ts.AppendSign(s.chainCtx, signer); err != nil {
				return backoff.Permanent(fmt.Errorf("submitter: signing: %w", err))
			}
		}
		utx := ts.UnverifiedTransaction()
		txHash = utx.Hash()
		raw = cbor.Marshal(utx)
		return nil
	}
	if err := backoff.Retry(op, backoff.WithContext(s.backoffCfg(), ctx)); err != nil {
		return nil, err
	}

	rsp, err := s.host.SubmitTx(host.SubmitTxRequest{Data: raw, Wait: true})
	if err != nil {
		logger.Warn("submission failed", "err", err)
		return nil, fmt.Errorf("submitter: submitting: %w", err)
	}

	if opts.Verify {
		if err := s.verifyInclusion(txHash, rsp); err != nil {
			return nil, err
		}
	}

	var callResult types.CallResult
	if err := cbor.Unmarshal(rsp.Output, &callResult); err != nil {
		return nil, fmt.Errorf("submitter: decoding call result: %w", err)
	}
	decoded, err := callformat.DecodeResult(&callResult, callformatMeta)
	if err != nil {
		return nil, fmt.Errorf("submitter: decoding result: %w", err)
	}
	if !decoded.IsSuccess() {
		return nil, decoded.Failed
	}
	return cbor.Marshal(decoded), nil
}

// verifyInclusion checks rsp's reported output against a Merkle inclusion proof for the
// transaction identified by txHash in the round it was included, under the key convention the
// runtime uses for indexing a transaction's output in its IO tree: "T" || tx hash || 0x02.
func (s *Submitter) verifyInclusion(txHash hash.Hash, rsp host.SubmitTxResponse) error {
	key := append(append([]byte("T"), txHash[:]...), 0x02)
	proof, err := s.host.StorageGet(host.StorageGetRequest{
		Round:    rsp.Round,
		RootType: host.RootTypeIO,
		Key:      key,
	})
	if err != nil {
		return fmt.Errorf("submitter: fetching inclusion proof: %w", err)
	}
	if !bytes.Equal(proof.Value, rsp.Output) {
		return fmt.Errorf("submitter: proven output does not match reported output")
	}
	if !host.VerifyStorageProof(key, proof.Value, proof.Proof, proof.Root) {
		return fmt.Errorf("submitter: inclusion proof does not verify")
	}
	return nil
}

// estimateGas asks the runtime for a gas estimate for tx as it would be submitted by caller.
func (s *Submitter) estimateGas(ctx context.Context, caller types.CallerAddress, tx *types.Transaction) (uint64, error) {
	req := core.EstimateGasQuery{
		Caller: &caller,
		Tx:     tx,
	}
	var gas uint64
	if err := s.rc.Query(ctx, client.RoundLatest, "core.EstimateGas", &req, &gas); err != nil {
		return 0, err
	}
	return gas, nil
}

// encodeEthereumTx re-encodes tx's call as a standard Ethereum EIP-2930 transaction, signs it
// with signer, and RLP-encodes the result. signer must implement evm.RSVSigner, and tx's call
// method must be evm.Call or evm.Create.
func encodeEthereumTx(tx *types.Transaction, signer sdkSignature.Signer, chainID uint64) ([]byte, hash.Hash, error) {
	rsvSigner, ok := signer.(evm.RSVSigner)
	if !ok {
		return nil, hash.Hash{}, fmt.Errorf("signer does not implement evm.RSVSigner (secp256k1 required)")
	}

	var to *gethCommon.Address
	var value, gasPrice []byte
	var gasLimit uint64
	var data []byte
	switch tx.Call.Method {
	case evmMethodCall:
		var body evm.CallTx
		if err := cbor.Unmarshal(tx.Call.Body, &body); err != nil {
			return nil, hash.Hash{}, fmt.Errorf("decoding evm.Call body: %w", err)
		}
		addr := gethCommon.BytesToAddress(body.Address)
		to = &addr
		value, gasPrice, gasLimit, data = body.Value, body.GasPrice, body.GasLimit, body.Data
	case evmMethodCreate:
		var body evm.CreateTx
		if err := cbor.Unmarshal(tx.Call.Body, &body); err != nil {
			return nil, hash.Hash{}, fmt.Errorf("decoding evm.Create body: %w", err)
		}
		value, gasPrice, gasLimit, data = body.Value, body.GasPrice, body.GasLimit, body.InitCode
	default:
		return nil, hash.Hash{}, fmt.Errorf("%s is not an EVM transaction", tx.Call.Method)
	}

	var nonce uint64
	if len(tx.AuthInfo.SignerInfo) == 1 {
		nonce = tx.AuthInfo.SignerInfo[0].Nonce
	}

	unsigned := gethTypes.NewTx(&gethTypes.AccessListTx{
		ChainID:  new(big.Int).SetUint64(chainID),
		Nonce:    nonce,
		GasPrice: new(big.Int).SetBytes(gasPrice),
		Gas:      gasLimit,
		To:       to,
		Value:    new(big.Int).SetBytes(value),
		Data:     data,
	})

	ethSigner := gethTypes.NewEIP2930Signer(new(big.Int).SetUint64(chainID))
	digest := ethSigner.Hash(unsigned)
	sig, err := rsvSigner.SignRSV(digest)
	if err != nil {
		return nil, hash.Hash{}, fmt.Errorf("signing ethereum transaction: %w", err)
	}
	signed, err := unsigned.WithSignature(ethSigner, sig)
	if err != nil {
		return nil, hash.Hash{}, fmt.Errorf("applying ethereum signature: %w", err)
	}

	raw, err := signed.MarshalBinary()
	if err != nil {
		return nil, hash.Hash{}, fmt.Errorf("encoding ethereum transaction: %w", err)
	}
	return raw, hash.NewFromBytes(raw), nil
}
