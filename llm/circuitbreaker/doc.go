// Copyright 2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

/*
Package circuitbreaker 为存储与模型调用提供熔断保护。

状态机：closed 下连续失败达到 Threshold 后进入 open，open 期间直接返回
ErrCircuitOpen；ResetTimeout 之后的第一次调用进入 half-open 作为探测，
连续 HalfOpenMaxCalls 次成功后关闭，任何一次失败立即重新打开。

	v, err := circuitbreaker.Execute(ctx, b, func(ctx context.Context) (*types.Memory, error) {
		return store.GetMemoryByID(ctx, id)
	})
*/
package circuitbreaker
