package starboard

import (
	"context"
	"fmt"
)

// InitFeed registers a feed at derive("Feed", id). The payer becomes the feed
// authority. A colliding id fails with ErrAlreadyExists and a zero
// updateInterval, which would close every staking window as it opens, with
// ErrInvalidUpdateInterval.
func (p *Program) InitFeed(ctx context.Context, payer Signer, id [32]byte, description [DescriptionLength]byte, updateInterval uint32) (Address, error) {
	addr, bump, err := p.deriver.Feed(id)
	if err != nil {
		return Address{}, fmt.Errorf("init_feed: %w", err)
	}

	params := fmt.Sprintf("feed=%s description=%q update_interval=%d", addr, trimDescription(description), updateInterval)
	err = p.execute(ctx, "init_feed", payer, params, func(tx Tx) error {
		if updateInterval == 0 {
			return ErrInvalidUpdateInterval
		}
		data, err := EncodeFeed(&Feed{
			ID:             id,
			Description:    description,
			UpdateInterval: updateInterval,
			StakingRound:   NoRound,
			Authority:      payer.Key(),
			Bump:           bump,
		})
		if err != nil {
			return err
		}
		if err := p.create(tx, addr, data); err != nil {
			return fmt.Errorf("creating feed %s: %w", addr, err)
		}
		return nil
	})
	if err != nil {
		return Address{}, err
	}

	p.logger.Info("feed initialized", "feed", addr, "description", trimDescription(description))
	return addr, nil
}

// StartFeed moves a feed out of its initialization phase. After this no more
// rounds may be added. Starting an already started feed is a no-op.
func (p *Program) StartFeed(ctx context.Context, authority Signer, feedAddr Address) error {
	params := fmt.Sprintf("feed=%s", feedAddr)
	return p.execute(ctx, "start_feed", authority, params, func(tx Tx) error {
		feed, err := p.loadFeed(tx, feedAddr)
		if err != nil {
			return err
		}
		if feed.Authority != authority.Key() {
			return accountError(ErrUnauthorized, "signer", authority.Key())
		}
		if feed.RoundCount == 0 {
			return accountError(ErrNoRounds, "feed", feedAddr)
		}
		if feed.Started {
			return nil
		}
		feed.Started = true
		return p.putFeed(tx, feedAddr, feed)
	})
}

func trimDescription(d [DescriptionLength]byte) string {
	f := Feed{Description: d}
	return f.DescriptionString()
}
