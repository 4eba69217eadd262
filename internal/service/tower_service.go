package service

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"

	"github.com/lk2023060901/xgacha/internal/content"
	"github.com/lk2023060901/xgacha/internal/game"
	"github.com/lk2023060901/xgacha/internal/game/gacha"
	"github.com/lk2023060901/xgacha/internal/game/progression"
	"github.com/lk2023060901/xgacha/internal/game/tower"
	"github.com/lk2023060901/xgacha/internal/kv"
	"github.com/lk2023060901/xgacha/internal/model"
	"github.com/lk2023060901/xgacha/pkg/logger"
)

// TowerService 爬塔：挑战与扫荡
type TowerService struct {
	logger   logger.Logger
	core     *Core
	resolver content.Resolver
}

// NewTowerService 创建爬塔服务
func NewTowerService(l logger.Logger, core *Core, resolver content.Resolver) *TowerService {
	return &TowerService{
		logger:   l.Named("service.tower"),
		core:     core,
		resolver: resolver,
	}
}

// ChallengeResult 挑战结果
type ChallengeResult struct {
	Floor       int                  `json:"floor"`
	Won         bool                 `json:"won"`
	Outcome     tower.Outcome        `json:"outcome"`
	Enemy       tower.Enemy          `json:"enemy"`
	EnemyRecord content.Record       `json:"enemyRecord"`
	Statuses    []progression.Status `json:"statuses,omitempty"`
}

// SweepResult 扫荡结果
type SweepResult struct {
	Floor    int                  `json:"floor"`
	Statuses []progression.Status `json:"statuses"`
}

// Challenge 挑战下一层
//
// 消耗一把钥匙（胜负都消耗）。敌人由 (库存, 层数) 确定性生成，
// 队长与敌人一对一推演；获胜时层数推进，全队结算经验：
// 队长全额，其余减半
func (s *TowerService) Challenge(ctx context.Context, discordID, guildID string, opts tower.Options) (*ChallengeResult, error) {
	now := s.core.clock.Now()

	var result *ChallengeResult
	err := kv.Retry(ctx, kv.DefaultAttempts, func(ctx context.Context) error {
		sess, err := s.core.load(ctx, discordID, guildID, now)
		if err != nil {
			return err
		}

		if sess.inv.FloorsCleared >= model.MaxFloors {
			return errors.Wrapf(game.ErrMaxFloorsReached, "cleared %d", sess.inv.FloorsCleared)
		}
		if sess.inv.AvailableKeys <= 0 {
			return errors.Wrap(game.ErrNoKeys, "challenge")
		}

		party := sess.inv.PartyMembers()
		if len(party) == 0 {
			return errors.Wrap(game.ErrEmptyParty, "challenge")
		}

		floor := sess.inv.FloorsCleared + 1

		// 同一库存重打同一层必须看到同一个敌人
		seed := fmt.Sprintf("%s:%d", sess.inv.ID, floor)
		rng := tower.NewRand(seed)
		enemy := tower.GenerateEnemy(floor, rng)

		enemyRecord, err := s.pickEnemyIdentity(ctx, rng, enemy.Rating)
		if err != nil {
			return err
		}

		lead, leadVer, err := s.core.repo.GetCharacter(ctx, party[0])
		if err != nil {
			return err
		}

		playerSide := &tower.Combatant{
			ID:     lead.ID,
			Name:   lead.Nickname,
			Stats:  lead.Combat.CurStats,
			Skills: lead.Combat.Skills,
		}
		enemySide := &tower.Combatant{
			ID:     "enemy:" + enemyRecord.CharacterID,
			Name:   enemyRecord.Name,
			Stats:  enemy.Stats,
			Skills: enemy.Skills,
		}

		outcome := tower.Fight(ctx, playerSide, enemySide, opts)
		won := outcome.WinnerID == lead.ID

		s.consumeKey(sess)

		tx := kv.NewTx()
		var statuses []progression.Status

		if won {
			sess.inv.FloorsCleared = floor

			statuses, err = s.grantPartyExp(ctx, tx, sess, party, floor,
				tower.ExpLeadMultiplier, tower.ExpMemberMultiplier, lead, leadVer)
			if err != nil {
				return err
			}
		}

		if err := s.core.commit(ctx, tx, sess); err != nil {
			return err
		}

		result = &ChallengeResult{
			Floor:       floor,
			Won:         won,
			Outcome:     outcome,
			Enemy:       enemy,
			EnemyRecord: enemyRecord,
			Statuses:    statuses,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.core.metrics != nil {
		winner := "enemy"
		if result.Won {
			winner = "player"
		}
		s.core.metrics.CombatOutcomes.WithLabelValues(winner).Inc()
	}
	s.logger.Info("tower challenge finished",
		"discordId", discordID, "guildId", guildID,
		"floor", result.Floor, "won", result.Won, "turns", result.Outcome.Turns)
	return result, nil
}

// Sweep 扫荡已通关的最高层：不打战斗，消耗一次扫荡
// 经验减半发放：队长半额，其余四分之一
func (s *TowerService) Sweep(ctx context.Context, discordID, guildID string) (*SweepResult, error) {
	now := s.core.clock.Now()

	var result *SweepResult
	err := kv.Retry(ctx, kv.DefaultAttempts, func(ctx context.Context) error {
		sess, err := s.core.load(ctx, discordID, guildID, now)
		if err != nil {
			return err
		}

		if sess.inv.FloorsCleared <= 0 {
			return errors.Wrap(game.ErrNoFloorsCleared, "sweep")
		}
		if sess.inv.AvailableSweeps <= 0 {
			return errors.Wrap(game.ErrNoSweeps, "sweep")
		}

		party := sess.inv.PartyMembers()
		if len(party) == 0 {
			return errors.Wrap(game.ErrEmptyParty, "sweep")
		}

		floor := sess.inv.FloorsCleared

		s.consumeSweep(sess)

		tx := kv.NewTx()
		statuses, err := s.grantPartyExp(ctx, tx, sess, party, floor,
			tower.SweepLeadMultiplier, tower.SweepMemberMultiplier, nil, kv.None)
		if err != nil {
			return err
		}

		if err := s.core.commit(ctx, tx, sess); err != nil {
			return err
		}

		result = &SweepResult{Floor: floor, Statuses: statuses}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.core.metrics != nil {
		s.core.metrics.SweepsTotal.Inc()
	}
	s.logger.Info("tower swept",
		"discordId", discordID, "guildId", guildID, "floor", result.Floor)
	return result, nil
}

// pickEnemyIdentity 用同一条种子序列挑选敌方形象
func (s *TowerService) pickEnemyIdentity(ctx context.Context, rng *tower.Rand, rating int) (content.Record, error) {
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

	record, err := gacha.PickCandidate(rng, pool, func(rec content.Record) bool {
		return !s.resolver.Disabled(rec.CharacterID) && !s.resolver.Disabled(rec.MediaID)
	})
	if err != nil {
		return content.Record{}, errors.Wrapf(err, "enemy rating %d", rating)
	}
	return record, nil
}

// grantPartyExp 给全队结算经验并排入事务
// lead/leadVer 已经读过时复用，避免重复读取
func (s *TowerService) grantPartyExp(
	ctx context.Context,
	tx *kv.Tx,
	sess *session,
	party []string,
	floor int,
	leadMult, memberMult float64,
	lead *model.Character,
	leadVer kv.Version,
) ([]progression.Status, error) {
	statuses := make([]progression.Status, 0, len(party))

	for i, id := range party {
		char := lead
		ver := leadVer
		if i > 0 || char == nil {
			var err error
			char, ver, err = s.core.repo.GetCharacter(ctx, id)
			if err != nil {
				return nil, err
			}
		}

		mult := memberMult
		if i == 0 {
			mult = leadMult
		}

		status := progression.GainExp(&char.Combat, tower.ExpGain(floor, mult))
		status.CharacterID = char.CharacterID
		statuses = append(statuses, status)

		if err := s.core.repo.StageCharacter(tx, char, ver); err != nil {
			return nil, err
		}
	}

	return statuses, nil
}

// consumeKey 扣一把钥匙并维护回充计时
func (s *TowerService) consumeKey(sess *session) {
	sess.inv.AvailableKeys--
	if sess.inv.AvailableKeys < model.MaxKeys && sess.inv.KeysTimestamp == nil {
		ts := sess.now
		sess.inv.KeysTimestamp = &ts
	}
	sess.invDirty = true
}

// consumeSweep 扣一次扫荡并维护回充计时
func (s *TowerService) consumeSweep(sess *session) {
	sess.inv.AvailableSweeps--
	if sess.inv.AvailableSweeps < model.MaxSweeps && sess.inv.SweepsTimestamp == nil {
		ts := sess.now
		sess.inv.SweepsTimestamp = &ts
	}
	sess.invDirty = true
}
