// Package dispatch 把入站指令放进共享协程池执行
//
// 每条指令是一个独立任务：自带超时、出错分级记录。业务规则错误
// 是预期结果，降级为 debug；其余错误按基础设施故障记 error
package dispatch

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/panjf2000/ants/v2"

	"github.com/lk2023060901/xgacha/internal/game"
	"github.com/lk2023060901/xgacha/pkg/logger"
)

// ErrClosed 调度器已关闭
var ErrClosed = errors.New("dispatch: dispatcher closed")

const (
	// DefaultWorkers 默认协程池容量
	DefaultWorkers = 64
	// DefaultTimeout 单条指令的默认超时
	DefaultTimeout = 10 * time.Second
)

// Options 调度器参数
type Options struct {
	// Workers 协程池容量，0 取 DefaultWorkers
	Workers int
	// Timeout 单条指令的执行超时，0 取 DefaultTimeout
	Timeout time.Duration
}

// Command 一条可执行指令
type Command struct {
	// Name 指令名（日志与指标用）
	Name string
	// Fn 指令体；ctx 带超时
	Fn func(ctx context.Context) error
	// Done 可选的完成回调，在工作协程上执行
	Done func(err error)
}

// Dispatcher 指令调度器
type Dispatcher struct {
	log     logger.Logger
	pool    *ants.Pool
	timeout time.Duration

	mu     sync.Mutex
	wg     sync.WaitGroup
	closed bool
}

// New 创建调度器
func New(l logger.Logger, opts Options) (*Dispatcher, error) {
	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	log := l.Named("dispatch")
	pool, err := ants.NewPool(workers, ants.WithPanicHandler(func(v interface{}) {
		log.Error("command panicked", "panic", v)
	}))
	if err != nil {
		return nil, errors.Wrap(err, "create worker pool")
	}

	return &Dispatcher{
		log:     log,
		pool:    pool,
		timeout: timeout,
	}, nil
}

// Submit 异步提交一条指令；池满时阻塞等待空位
func (d *Dispatcher) Submit(cmd Command) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrClosed
	}
	d.wg.Add(1)
	d.mu.Unlock()

	err := d.pool.Submit(func() {
		defer d.wg.Done()
		d.run(cmd)
	})
	if err != nil {
		d.wg.Done()
		return errors.Wrapf(err, "submit %s", cmd.Name)
	}
	return nil
}

// Execute 同步执行一条指令，复用同样的超时与错误分级
func (d *Dispatcher) Execute(cmd Command) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrClosed
	}
	d.mu.Unlock()

	return d.run(cmd)
}

// Close 停止接收新指令并等待在途指令结束
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	d.mu.Unlock()

	d.wg.Wait()
	d.pool.Release()
}

// Running 在途指令数
func (d *Dispatcher) Running() int {
	return d.pool.Running()
}

func (d *Dispatcher) run(cmd Command) error {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	start := time.Now()
	err := cmd.Fn(ctx)
	elapsed := time.Since(start)

	switch {
	case err == nil:
		d.log.Debug("command finished", "command", cmd.Name, "elapsed", elapsed)
	case game.IsBusiness(err) || errors.Is(err, game.ErrPoolExhausted):
		d.log.Debug("command rejected", "command", cmd.Name, "reason", err.Error())
	default:
		d.log.Error("command failed", "command", cmd.Name, "elapsed", elapsed, "error", err.Error())
	}

	if cmd.Done != nil {
		cmd.Done(err)
	}
	return err
}
