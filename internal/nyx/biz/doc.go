// Package biz 实现网关的业务逻辑：分块、向量化、检索、对话编排与文档入库。
//
// 对话请求按固定阶段推进：规范化 -> 检索（仅当带租户）-> 调用供应商 ->
// 流式输出或回退到演示回复。检索与向量化都是尽力而为的增强步骤，
// 失败只记录日志，不会阻断对话。
package biz
