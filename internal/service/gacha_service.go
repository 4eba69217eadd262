package service

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/singleflight"

	"github.com/lk2023060901/xgacha/internal/content"
	"github.com/lk2023060901/xgacha/internal/game"
	"github.com/lk2023060901/xgacha/internal/game/gacha"
	"github.com/lk2023060901/xgacha/internal/kv"
	"github.com/lk2023060901/xgacha/internal/model"
	"github.com/lk2023060901/xgacha/pkg/logger"
)

// GachaService 抽卡与合成
type GachaService struct {
	logger   logger.Logger
	core     *Core
	resolver content.Resolver

	// sf 合并并发的候选池加载，同一池参数只打一次内容源
	sf singleflight.Group
}

// NewGachaService 创建抽卡服务
func NewGachaService(l logger.Logger, core *Core, resolver content.Resolver) *GachaService {
	return &GachaService{
		logger:   l.Named("service.gacha"),
		core:     core,
		resolver: resolver,
	}
}

// PullResult 一次抽取的结果
type PullResult struct {
	Character *model.Character `json:"character"`
	Record    content.Record   `json:"record"`
	Rating    int              `json:"rating"`
	// ViaGuarantee 是否由保底券兑换
	ViaGuarantee bool `json:"viaGuarantee"`
	// ViaSynthesis 是否由合成产出
	ViaSynthesis bool `json:"viaSynthesis"`
}

// Pull 普通抽取：消耗一次抽数，按权重表选池后均匀取角色
func (s *GachaService) Pull(ctx context.Context, discordID, guildID string) (*PullResult, error) {
	now := s.core.clock.Now()

	var result *PullResult
	err := kv.Retry(ctx, kv.DefaultAttempts, func(ctx context.Context) error {
		sess, err := s.core.load(ctx, discordID, guildID, now)
		if err != nil {
			return err
		}

		if sess.inv.AvailablePulls <= 0 {
			return errors.Wrap(game.ErrNoPulls, "pull")
		}

		record, rating, err := s.sampleWeighted(ctx, guildID)
		if err != nil {
			return err
		}

		char := model.NewCharacter(record.CharacterID, record.MediaID, sess.inv.ID, guildID, rating)

		s.consumePull(sess)

		tx := kv.NewTx()
		if err := s.core.repo.StageNewCharacter(tx, char); err != nil {
			return err
		}
		if err := s.core.commit(ctx, tx, sess); err != nil {
			return err
		}

		result = &PullResult{Character: char, Record: record, Rating: rating}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordPull(result.Rating, "normal")
	s.logger.Info("character pulled",
		"discordId", discordID, "guildId", guildID,
		"characterId", result.Record.CharacterID, "rating", result.Rating)
	return result, nil
}

// GuaranteedPull 保底抽取：消耗一张指定星级的保底券，不消耗抽数
func (s *GachaService) GuaranteedPull(ctx context.Context, discordID, guildID string, rating int) (*PullResult, error) {
	now := s.core.clock.Now()

	var result *PullResult
	err := kv.Retry(ctx, kv.DefaultAttempts, func(ctx context.Context) error {
		sess, err := s.core.load(ctx, discordID, guildID, now)
		if err != nil {
			return err
		}

		if !sess.player.ConsumeGuarantee(rating) {
			return errors.Wrapf(game.ErrNoGuarantee, "rating %d", rating)
		}
		sess.playerDirty = true

		record, err := s.sampleByRating(ctx, guildID, rating, nil)
		if err != nil {
			return err
		}

		char := model.NewCharacter(record.CharacterID, record.MediaID, sess.inv.ID, guildID, rating)
		sess.inv.LastPull = &sess.now
		sess.invDirty = true

		tx := kv.NewTx()
		if err := s.core.repo.StageNewCharacter(tx, char); err != nil {
			return err
		}
		if err := s.core.commit(ctx, tx, sess); err != nil {
			return err
		}

		result = &PullResult{Character: char, Record: record, Rating: rating, ViaGuarantee: true}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordPull(result.Rating, "guarantee")
	s.logger.Info("guaranteed character pulled",
		"discordId", discordID, "guildId", guildID,
		"characterId", result.Record.CharacterID, "rating", rating)
	return result, nil
}

// Synthesize 合成：销毁五个低一星的角色，换取一个目标星级的新角色
// 收藏与队伍中的角色不会被选为祭品
func (s *GachaService) Synthesize(ctx context.Context, discordID, guildID string, mode gacha.SynthesisMode, target int) (*PullResult, error) {
	now := s.core.clock.Now()

	var result *PullResult
	err := kv.Retry(ctx, kv.DefaultAttempts, func(ctx context.Context) error {
		sess, err := s.core.load(ctx, discordID, guildID, now)
		if err != nil {
			return err
		}

		material, err := s.filteredCharacters(ctx, sess)
		if err != nil {
			return err
		}

		picked, err := gacha.GetSacrifices(material, mode, target)
		if err != nil {
			return err
		}

		// 祭品腾出的源角色在同一事务里重新可用
		freed := make(map[string]struct{}, len(picked.Characters))
		for _, c := range picked.Characters {
			freed[c.CharacterID] = struct{}{}
		}

		record, err := s.sampleByRating(ctx, guildID, picked.Target, freed)
		if err != nil {
			return err
		}

		char := model.NewCharacter(record.CharacterID, record.MediaID, sess.inv.ID, guildID, picked.Target)

		tx := kv.NewTx()
		for _, c := range picked.Characters {
			fresh, ver, err := s.core.repo.GetCharacter(ctx, c.ID)
			if err != nil {
				return err
			}
			s.core.repo.StageCharacterDelete(tx, fresh, ver)
		}
		if err := s.core.repo.StageNewCharacter(tx, char); err != nil {
			return err
		}
		if err := s.core.commit(ctx, tx, sess); err != nil {
			return err
		}

		result = &PullResult{Character: char, Record: record, Rating: picked.Target, ViaSynthesis: true}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.core.metrics != nil {
		s.core.metrics.SynthesisTotal.WithLabelValues(strconv.Itoa(result.Rating)).Inc()
	}
	s.recordPull(result.Rating, "synthesis")
	s.logger.Info("character synthesized",
		"discordId", discordID, "guildId", guildID,
		"characterId", result.Record.CharacterID, "target", result.Rating)
	return result, nil
}

// consumePull 扣一次抽数并维护回充计时
func (s *GachaService) consumePull(sess *session) {
	sess.inv.AvailablePulls--
	if sess.inv.AvailablePulls < model.MaxPulls && sess.inv.PullsTimestamp == nil {
		ts := sess.now
		sess.inv.PullsTimestamp = &ts
	}
	sess.inv.LastPull = &sess.now
	sess.invDirty = true
}

// sampleWeighted 按权重表选池并抽取一个未被占用的角色
func (s *GachaService) sampleWeighted(ctx context.Context, guildID string) (content.Record, int, error) {
	var vars gacha.Variables
	s.core.withRand(func(r *rand.Rand) {
		vars = gacha.Roll(r)
	})

	pool, err := s.loadPool(ctx, vars)
	if err != nil {
		return content.Record{}, 0, err
	}

	taken, err := s.core.repo.ListGuildSourceIDs(ctx, guildID)
	if err != nil {
		return content.Record{}, 0, err
	}

	var picked content.Record
	var pickErr error
	s.core.withRand(func(r *rand.Rand) {
		picked, pickErr = gacha.PickCandidate(r, pool, func(rec content.Record) bool {
			if s.resolver.Disabled(rec.CharacterID) || s.resolver.Disabled(rec.MediaID) {
				return false
			}
			_, owned := taken[rec.CharacterID]
			return !owned
		})
	})
	if pickErr != nil {
		return content.Record{}, 0, pickErr
	}

	return picked, gacha.Rate(picked.Role, picked.Popularity), nil
}

// sampleByRating 在指定星级的候选里抽取，freed 里的源角色视为未占用
func (s *GachaService) sampleByRating(ctx context.Context, guildID string, rating int, freed map[string]struct{}) (content.Record, error) {
	all, err := s.resolver.All(ctx)
	if err != nil {
		return content.Record{}, err
	}

	pool := make([]content.Record, 0, len(all))
	for _, rec := range all {
		if gacha.Rate(rec.Role, rec.Popularity) == rating {
			pool = append(pool, rec)
		}
	}

	taken, err := s.core.repo.ListGuildSourceIDs(ctx, guildID)
	if err != nil {
		return content.Record{}, err
	}
	for id := range freed {
		delete(taken, id)
	}

	var picked content.Record
	var pickErr error
	s.core.withRand(func(r *rand.Rand) {
		picked, pickErr = gacha.PickCandidate(r, pool, func(rec content.Record) bool {
			if s.resolver.Disabled(rec.CharacterID) || s.resolver.Disabled(rec.MediaID) {
				return false
			}
			_, owned := taken[rec.CharacterID]
			return !owned
		})
	})
	if pickErr != nil {
		return content.Record{}, errors.Wrapf(pickErr, "rating %d", rating)
	}
	return picked, nil
}

// loadPool 经 singleflight 加载池参数对应的候选快照
func (s *GachaService) loadPool(ctx context.Context, vars gacha.Variables) ([]content.Record, error) {
	key := fmt.Sprintf("%s:%d:%d", vars.Role, vars.Range.Min, vars.Range.Max)

	v, err, _ := s.sf.Do(key, func() (interface{}, error) {
		return s.resolver.Pool(ctx, vars.Role, vars.Range.Min, vars.Range.Max)
	})
	if err != nil {
		return nil, err
	}

	// PickCandidate 会就地重排，复制一份共享的快照
	shared := v.([]content.Record)
	pool := make([]content.Record, len(shared))
	copy(pool, shared)
	return pool, nil
}

// filteredCharacters 列出可作祭品的角色：排除收藏与队伍成员
func (s *GachaService) filteredCharacters(ctx context.Context, sess *session) ([]*model.Character, error) {
	all, err := s.core.repo.ListCharactersByInventory(ctx, sess.inv.ID)
	if err != nil {
		return nil, err
	}

	out := make([]*model.Character, 0, len(all))
	for _, c := range all {
		if sess.inv.InParty(c.ID) {
			continue
		}
		if sess.player.LikesCharacter(c.CharacterID) || sess.player.LikesMedia(c.MediaID) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (s *GachaService) recordPull(rating int, source string) {
	if s.core.metrics != nil {
		s.core.metrics.PullsTotal.WithLabelValues(strconv.Itoa(rating), source).Inc()
	}
}
