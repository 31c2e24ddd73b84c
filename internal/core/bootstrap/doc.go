// Package bootstrap 实现套接字通道的客户端与服务端装配
//
// 客户端拨号后、服务端每接受一条连接后，都从事件循环组取下一个
// 循环创建通道，并在装配完成时把套接字处理器装入链头槽位；用户
// 回调在同一循环线程上收到就绪的通道，自行向右追加处理器。
package bootstrap
