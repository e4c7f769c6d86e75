package starboard

import (
	"context"
	"fmt"
)

// InitRound creates round num of a feed at derive("Round", feed, [num]).
func (p *Program) InitRound(ctx context.Context, payer Signer, feedAddr Address, num uint8) (Address, error) {
	if num >= MaxRounds {
		return Address{}, fmt.Errorf("init_round: %w: %d, maximum is %d", ErrInvalidRoundNumber, num, MaxRounds-1)
	}
	addr, bump, err := p.deriver.Round(feedAddr, num)
	if err != nil {
		return Address{}, fmt.Errorf("init_round: %w", err)
	}

	params := fmt.Sprintf("feed=%s num=%d round=%s", feedAddr, num, addr)
	err = p.execute(ctx, "init_round", payer, params, func(tx Tx) error {
		feed, err := p.loadFeed(tx, feedAddr)
		if err != nil {
			return err
		}
		if feed.Started {
			return accountError(ErrFeedStarted, "feed", feedAddr)
		}

		data, err := EncodeRound(&Round{
			Feed:  feedAddr,
			Num:   num,
			Stage: StageStandby,
			Bump:  bump,
		})
		if err != nil {
			return err
		}
		if err := p.create(tx, addr, data); err != nil {
			return fmt.Errorf("creating round %d: %w", num, err)
		}

		feed.RoundCount++
		return p.putFeed(tx, feedAddr, feed)
	})
	if err != nil {
		return Address{}, err
	}

	p.logger.Info("round initialized", "feed", feedAddr, "num", num, "round", addr)
	return addr, nil
}

// StartStaking points the feed at roundAddr as its staking round. expectedOld
// is the staking round the caller last observed (NoRound before the first
// activation); if the feed has moved on since, the call fails with
// ErrConcurrencyConflict and nothing is written.
func (p *Program) StartStaking(ctx context.Context, authority Signer, feedAddr, roundAddr, expectedOld Address) error {
	params := fmt.Sprintf("feed=%s round=%s expected_old=%s", feedAddr, roundAddr, expectedOld)
	err := p.execute(ctx, "start_staking", authority, params, func(tx Tx) error {
		feed, round, err := p.loadFeedRound(tx, feedAddr, roundAddr)
		if err != nil {
			return err
		}
		if feed.Authority != authority.Key() {
			return accountError(ErrUnauthorized, "signer", authority.Key())
		}
		if feed.StakingRound != expectedOld {
			return fmt.Errorf("%w: expected %s, feed has %s", ErrConcurrencyConflict, expectedOld, feed.StakingRound)
		}
		if round.Stage != StageStandby {
			return fmt.Errorf("%w: round %d is %s", ErrRoundNotReady, round.Num, round.Stage)
		}

		now := p.clock.Now().Unix()
		if feed.HasStakingRound() && feed.StakingRound != roundAddr {
			prev, err := p.loadRound(tx, feed.StakingRound)
			if err != nil {
				return err
			}
			if windowOpen(prev, feed, now) {
				return fmt.Errorf("%w: round %d closes at %d", ErrStakingInProgress, prev.Num, prev.StakingStart+int64(feed.UpdateInterval))
			}
		}

		feed.StakingRound = roundAddr
		feed.Height++
		round.Stage = StageStaking
		round.StakingStart = now
		round.RoundHeight = feed.Height

		if err := p.putRound(tx, roundAddr, round); err != nil {
			return err
		}
		return p.putFeed(tx, feedAddr, feed)
	})
	if err != nil {
		return err
	}

	p.logger.Info("staking started", "feed", feedAddr, "round", roundAddr)
	return nil
}

// windowOpen reports whether round is still accepting stakes at now.
func windowOpen(round *Round, feed *Feed, now int64) bool {
	return round.Stage == StageStaking && now < round.StakingStart+int64(feed.UpdateInterval)
}
