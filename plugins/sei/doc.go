// Copyright 2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package sei 提供 Sei EVM 链的只读钱包插件。

插件注册一个 GET_BALANCE 动作（别名 CHECK_BALANCE）和一个钱包提供者：

	rt, err := agent.New(agent.Options{
	    Character: character,
	    Store:     store,
	    Generator: generator,
	    Plugins:   []agent.Plugin{sei.NewPlugin(sei.Options{})},
	})

动作从最近的对话中抽取 {chain, address, token}，原生 SEI 余额通过
eth_getBalance 查询，ERC-20 余额通过 balanceOf 与 decimals 调用查询，
结果按代币精度格式化后经回调返回。

钱包地址来自角色设置 SEI_ADDRESS，未配置时由 SEI_PRIVATE_KEY 推导。
SEI_NETWORK 选择默认链，SEI_RPC_URL 覆盖默认链的 RPC 地址。
*/
package sei
