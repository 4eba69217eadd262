package gacha

import (
	"sort"

	"github.com/cockroachdb/errors"

	"github.com/lk2023060901/xgacha/internal/game"
	"github.com/lk2023060901/xgacha/internal/model"
)

// SacrificesNeeded 合成一个目标星级所需的祭品数
const SacrificesNeeded = 5

// SynthesisMode 合成目标的选择策略
type SynthesisMode string

const (
	// ModeTarget 合成指定星级
	ModeTarget SynthesisMode = "target"
	// ModeMin 合成可行的最低星级
	ModeMin SynthesisMode = "min"
	// ModeMax 合成可行的最高星级
	ModeMax SynthesisMode = "max"
)

// Sacrifices 一次合成选定的祭品与目标
type Sacrifices struct {
	Target     int
	Characters []*model.Character
}

// GetSacrifices 为目标星级挑选祭品
//
// 目标 T 只消耗 T-1 星的角色，5 份换 1 个；5 星角色计入 4 星桶
// （合成 5 星时可作祭品）。材料不足返回业务规则错误，
// 错误里带上已有数量。characters 应当已剔除收藏与队伍成员
func GetSacrifices(characters []*model.Character, mode SynthesisMode, target int) (Sacrifices, error) {
	if mode == ModeTarget && (target < model.MinRating+1 || target > model.MaxRating) {
		return Sacrifices{}, errors.Wrapf(game.ErrInsufficientSacrifices,
			"invalid synthesis target %d", target)
	}

	// 低星优先作祭品
	sorted := make([]*model.Character, len(characters))
	copy(sorted, characters)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Rating < sorted[j].Rating
	})

	buckets := make(map[int][]*model.Character, model.MaxRating)
	for _, char := range sorted {
		bucket := char.Rating
		if bucket == model.MaxRating {
			bucket = model.MaxRating - 1
		}
		buckets[bucket] = append(buckets[bucket], char)
	}

	switch mode {
	case ModeMin:
		target = 0
		for t := model.MinRating + 1; t <= model.MaxRating; t++ {
			if len(buckets[t-1]) >= SacrificesNeeded {
				target = t
				break
			}
		}
		if target == 0 {
			return Sacrifices{}, errors.Wrap(game.ErrInsufficientSacrifices, "merge not possible")
		}
	case ModeMax:
		target = 0
		for t := model.MaxRating; t >= model.MinRating+1; t-- {
			if len(buckets[t-1]) >= SacrificesNeeded {
				target = t
				break
			}
		}
		if target == 0 {
			return Sacrifices{}, errors.Wrap(game.ErrInsufficientSacrifices, "merge not possible")
		}
	}

	material := buckets[target-1]
	if len(material) < SacrificesNeeded {
		return Sacrifices{}, errors.Wrapf(game.ErrInsufficientSacrifices,
			"have %d of %d sacrifices for target %d", len(material), SacrificesNeeded, target)
	}

	return Sacrifices{
		Target:     target,
		Characters: material[:SacrificesNeeded],
	}, nil
}
