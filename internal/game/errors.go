// Package game 定义游戏核心的错误分级与公共契约
//
// 错误分三类：
//  1. 致命/基础设施错误：账本重试耗尽、数据不变量被破坏，向上抛出并记录
//  2. 业务规则错误：资源不足、冷却中等预期结果，由调用边界转为用户提示
//  3. 卡池耗尽：候选池无合格条目，可恢复但与业务规则错误区分
package game

import "github.com/cockroachdb/errors"

// 业务规则错误（非致命，调用方用 errors.Is 甄别）
var (
	ErrNoPulls                = errors.New("no pulls available")
	ErrNoSweeps               = errors.New("no sweeps available")
	ErrNoKeys                 = errors.New("no keys available")
	ErrInsufficientTokens     = errors.New("insufficient tokens")
	ErrNoGuarantee            = errors.New("no guarantee ticket")
	ErrSkillMaxed             = errors.New("skill already maxed")
	ErrInsufficientPoints     = errors.New("insufficient skill points")
	ErrOnCooldown             = errors.New("action on cooldown")
	ErrInsufficientSacrifices = errors.New("insufficient sacrifices")
	ErrCharacterNotFound      = errors.New("character not found")
	ErrCharacterNotOwned      = errors.New("character not owned")
	ErrPartySlotInvalid       = errors.New("invalid party slot")
	ErrEmptyParty             = errors.New("party is empty")
	ErrMaxFloorsReached       = errors.New("max floors reached")
	ErrNoFloorsCleared        = errors.New("no floors cleared")
	ErrUnknownSkill           = errors.New("unknown skill")
	ErrStealProtected         = errors.New("character is protected")
)

// ErrPoolExhausted 候选池耗尽：抽卡或敌方选取时没有合格候选
var ErrPoolExhausted = errors.New("candidate pool exhausted")

// IsBusiness 判断是否为业务规则错误（预期结果，不记为缺陷）
func IsBusiness(err error) bool {
	for _, sentinel := range []error{
		ErrNoPulls, ErrNoSweeps, ErrNoKeys,
		ErrInsufficientTokens, ErrNoGuarantee,
		ErrSkillMaxed, ErrInsufficientPoints,
		ErrOnCooldown, ErrInsufficientSacrifices,
		ErrCharacterNotFound, ErrCharacterNotOwned,
		ErrPartySlotInvalid, ErrEmptyParty,
		ErrMaxFloorsReached, ErrNoFloorsCleared,
		ErrUnknownSkill, ErrStealProtected,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
