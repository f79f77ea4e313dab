package llm

// SliceStream 基于固定切片的 Stream，可选在末尾返回错误。
// 用于演示与测试注入。
type SliceStream struct {
	deltas []string
	err    error
	pos    int
	cur    string
	done   bool
	closed bool
}

// NewSliceStream 创建按顺序产出 deltas 的 Stream。
func NewSliceStream(deltas ...string) *SliceStream {
	return &SliceStream{deltas: deltas}
}

// WithError 设置所有增量产出后返回的错误，模拟流中断。
func (s *SliceStream) WithError(err error) *SliceStream {
	s.err = err
	return s
}

func (s *SliceStream) Next() bool {
	if s.closed {
		return false
	}
	if s.pos >= len(s.deltas) {
		s.done = true
		return false
	}
	s.cur = s.deltas[s.pos]
	s.pos++
	return true
}

func (s *SliceStream) Delta() string { return s.cur }

// Err 在 Next 返回 false 之前始终为 nil。
func (s *SliceStream) Err() error {
	if s.done {
		return s.err
	}
	return nil
}

func (s *SliceStream) Close() error {
	s.closed = true
	return nil
}

// Closed 报告 Close 是否已被调用。
func (s *SliceStream) Closed() bool { return s.closed }
