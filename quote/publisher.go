package quote

import "sync"

// Publisher 快照的轻量分发器。每个订阅者持有容量 1 的通道，
// 慢订阅者只会错过中间帧，永远拿得到最新帧，发布方从不阻塞。
type Publisher struct {
	mu   sync.Mutex
	subs []chan RenderSnapshot
}

// NewPublisher 创建分发器
func NewPublisher() *Publisher {
	return &Publisher{}
}

// Subscribe 新增一个订阅者，返回只读通道
func (p *Publisher) Subscribe() <-chan RenderSnapshot {
	ch := make(chan RenderSnapshot, 1)
	p.mu.Lock()
	p.subs = append(p.subs, ch)
	p.mu.Unlock()
	return ch
}

// Publish 将快照分发给全部订阅者，latest-wins
func (p *Publisher) Publish(snap RenderSnapshot) {
	p.mu.Lock()
	subs := p.subs
	p.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}
