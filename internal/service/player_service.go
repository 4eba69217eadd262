package service

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/lk2023060901/xgacha/internal/game"
	"github.com/lk2023060901/xgacha/internal/kv"
	"github.com/lk2023060901/xgacha/internal/model"
	"github.com/lk2023060901/xgacha/internal/repository"
	"github.com/lk2023060901/xgacha/pkg/logger"
)

// PlayerService 玩家侧的收藏与角色外观
type PlayerService struct {
	logger logger.Logger
	core   *Core
}

// NewPlayerService 创建玩家服务
func NewPlayerService(l logger.Logger, core *Core) *PlayerService {
	return &PlayerService{
		logger: l.Named("service.player"),
		core:   core,
	}
}

// LikeCharacter 收藏一个角色；收藏的角色不会被当成合成素材
// 重复收藏是幂等的
func (s *PlayerService) LikeCharacter(ctx context.Context, discordID, guildID, characterID string) (*model.Player, error) {
	return s.mutateLikes(ctx, discordID, guildID, func(p *model.Player) bool {
		if p.LikesCharacter(characterID) {
			return false
		}
		p.Likes = append(p.Likes, model.Like{CharacterID: characterID})
		return true
	})
}

// UnlikeCharacter 取消收藏角色
func (s *PlayerService) UnlikeCharacter(ctx context.Context, discordID, guildID, characterID string) (*model.Player, error) {
	return s.mutateLikes(ctx, discordID, guildID, func(p *model.Player) bool {
		return removeLike(p, func(l model.Like) bool { return l.CharacterID == characterID })
	})
}

// LikeMedia 收藏整部媒体；其下所有角色都不会被当成合成素材
func (s *PlayerService) LikeMedia(ctx context.Context, discordID, guildID, mediaID string) (*model.Player, error) {
	return s.mutateLikes(ctx, discordID, guildID, func(p *model.Player) bool {
		if p.LikesMedia(mediaID) {
			return false
		}
		p.Likes = append(p.Likes, model.Like{MediaID: mediaID})
		return true
	})
}

// UnlikeMedia 取消收藏媒体
func (s *PlayerService) UnlikeMedia(ctx context.Context, discordID, guildID, mediaID string) (*model.Player, error) {
	return s.mutateLikes(ctx, discordID, guildID, func(p *model.Player) bool {
		return removeLike(p, func(l model.Like) bool { return l.MediaID != "" && l.MediaID == mediaID })
	})
}

// SetNickname 给自己拥有的角色改名；传空串恢复原名
func (s *PlayerService) SetNickname(ctx context.Context, discordID, guildID, characterID, nickname string) (*model.Character, error) {
	return s.customize(ctx, discordID, guildID, characterID, func(c *model.Character) {
		c.Nickname = nickname
	})
}

// SetImage 给自己拥有的角色换立绘；传空串恢复原图
func (s *PlayerService) SetImage(ctx context.Context, discordID, guildID, characterID, image string) (*model.Character, error) {
	return s.customize(ctx, discordID, guildID, characterID, func(c *model.Character) {
		c.Image = image
	})
}

// mutateLikes 加载玩家、应用收藏变更、提交
func (s *PlayerService) mutateLikes(ctx context.Context, discordID, guildID string, mutate func(*model.Player) bool) (*model.Player, error) {
	now := s.core.clock.Now()

	var snapshot *model.Player
	err := kv.Retry(ctx, kv.DefaultAttempts, func(ctx context.Context) error {
		sess, err := s.core.load(ctx, discordID, guildID, now)
		if err != nil {
			return err
		}

		if mutate(sess.player) {
			sess.playerDirty = true
		}

		if err := s.core.commit(ctx, kv.NewTx(), sess); err != nil {
			return err
		}
		snapshot = sess.player
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

// customize 对自己拥有的角色应用外观变更
func (s *PlayerService) customize(ctx context.Context, discordID, guildID, characterID string, mutate func(*model.Character)) (*model.Character, error) {
	now := s.core.clock.Now()

	var snapshot *model.Character
	err := kv.Retry(ctx, kv.DefaultAttempts, func(ctx context.Context) error {
		sess, err := s.core.load(ctx, discordID, guildID, now)
		if err != nil {
			return err
		}

		char, ver, err := s.core.repo.GetCharacterByGuildSource(ctx, guildID, characterID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return errors.Wrap(game.ErrCharacterNotFound, characterID)
			}
			return err
		}
		if char.InventoryID != sess.inv.ID {
			return errors.Wrap(game.ErrCharacterNotOwned, characterID)
		}

		mutate(char)

		tx := kv.NewTx()
		if err := s.core.repo.StageCharacter(tx, char, ver); err != nil {
			return err
		}
		if err := s.core.commit(ctx, tx, sess); err != nil {
			return err
		}
		snapshot = char
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("character customized",
		"discordId", discordID, "guildId", guildID, "characterId", characterID)
	return snapshot, nil
}

func removeLike(p *model.Player, match func(model.Like) bool) bool {
	for i, l := range p.Likes {
		if match(l) {
			p.Likes = append(p.Likes[:i], p.Likes[i+1:]...)
			return true
		}
	}
	return false
}
