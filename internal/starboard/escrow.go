package starboard

import (
	"context"
	"fmt"
)

// StakeReceipt describes a committed stake.
type StakeReceipt struct {
	Escrow Address
	Vault  Address
	// Amount is the amount moved by this stake.
	Amount uint64
	// Deposits counts the stakes the voter has made into this escrow, this one included.
	Deposits uint32
}

// Stake moves the protocol stake amount from source, a token account owned by
// voter, into the vault of the voter's escrow for roundAddr. The first stake
// creates the escrow and its vault; later stakes top up the same vault.
func (p *Program) Stake(ctx context.Context, voter Signer, feedAddr, roundAddr, source Address) (*StakeReceipt, error) {
	voterKey := voter.Key()
	escrowAddr, escrowBump, err := p.deriver.Escrow(voterKey, roundAddr)
	if err != nil {
		return nil, fmt.Errorf("stake: %w", err)
	}
	vaultAuthority, err := p.deriver.escrowTokenAuthority(escrowAddr)
	if err != nil {
		return nil, fmt.Errorf("stake: %w", err)
	}
	// The vault is owned by the program signer, whose proof never leaves this package.
	programSigner, _, err := p.deriver.ProgramSigner()
	if err != nil {
		return nil, fmt.Errorf("stake: deriving program signer: %w", err)
	}
	vaultAddr := vaultAuthority.Key()

	receipt := &StakeReceipt{
		Escrow: escrowAddr,
		Vault:  vaultAddr,
		Amount: p.params.StakeAmount,
	}

	params := fmt.Sprintf("feed=%s round=%s source=%s escrow=%s", feedAddr, roundAddr, source, escrowAddr)
	err = p.execute(ctx, "stake", voter, params, func(tx Tx) error {
		feed, round, err := p.loadFeedRound(tx, feedAddr, roundAddr)
		if err != nil {
			return err
		}
		now := p.clock.Now().Unix()
		if feed.StakingRound != roundAddr {
			return accountError(ErrRoundNotActive, "round", roundAddr)
		}
		if !windowOpen(round, feed, now) {
			return fmt.Errorf("%w: staking window of round %d closed at %d", ErrRoundNotActive, round.Num, round.StakingStart+int64(feed.UpdateInterval))
		}

		existing, err := tx.Get(escrowAddr)
		if err != nil {
			return fmt.Errorf("loading escrow: %w", err)
		}

		var escrow *Escrow
		if existing == nil {
			escrow = &Escrow{
				Voter:     voterKey,
				Round:     roundAddr,
				Feed:      feedAddr,
				Bump:      escrowBump,
				VaultBump: vaultAuthority.bump,
			}
			if err := p.tokens.InitializeAccount(tx, vaultAddr, p.params.StakeMint, programSigner, vaultAuthority); err != nil {
				return fmt.Errorf("creating vault: %w", err)
			}
			round.NumStakers++
		} else {
			escrow, err = p.loadEscrow(tx, escrowAddr)
			if err != nil {
				return err
			}
			if escrow.Voter != voterKey || escrow.Round != roundAddr {
				return accountError(ErrRelationshipMismatch, "escrow", escrowAddr)
			}
			vault, err := p.tokens.Account(tx, vaultAddr)
			if err != nil {
				return fmt.Errorf("loading vault: %w", err)
			}
			if vault.Owner != programSigner {
				return accountError(ErrUnauthorized, "vault authority", vault.Owner)
			}
		}

		if err := p.tokens.Transfer(tx, source, vaultAddr, voter, p.params.StakeAmount); err != nil {
			return fmt.Errorf("transferring stake: %w", err)
		}

		escrow.Deposits++
		escrow.LastStakedAt = now
		escrow.RoundHeight = round.RoundHeight

		data, err := EncodeEscrow(escrow)
		if err != nil {
			return err
		}
		if existing == nil {
			err = p.create(tx, escrowAddr, data)
		} else {
			err = p.put(tx, escrowAddr, data)
		}
		if err != nil {
			return fmt.Errorf("writing escrow: %w", err)
		}
		receipt.Deposits = escrow.Deposits

		return p.putRound(tx, roundAddr, round)
	})
	if err != nil {
		return nil, err
	}

	p.logger.Info("stake committed", "voter", voterKey, "round", roundAddr, "escrow", escrowAddr, "deposits", receipt.Deposits)
	return receipt, nil
}
