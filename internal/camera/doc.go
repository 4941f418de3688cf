// Package camera カメラセンサーのライフサイクルとフレーム取得を担う
//
// # 責務
// - センサー設定の検証と一度きりの初期化
// - 固定長フレームバッファプールの管理
// - 生フレーム（RGB565/GRAYSCALE）からJPEGへの変換
// - V4L2デバイスからの1フレーム取得
//
// # 使い分け
// このパッケージは以下の場合に使用する：
// - センサーから1フレームだけ取得したい（WithFrame）
// - 取得したフレームをJPEGに変換したい（JPEGEncoder）
// - センサーがまだ応答するか確認したい（Probe）
//
// # 仕様
// - Device: 初期化フラグとフレームプールを保持する。Initは冪等
// - Sensor: ハードウェアドライバのファサード。V4L2Sensor / PatternSensor / MockSensor
// - フレームとJPEGバッファはスコープ付き所有で、全ての経路で必ず一度だけ返却される
//
// # 前提要件
//   - ffmpeg: V4L2Sensorが1フレームをrawvideoとして取得するのに使用
//     Ubuntu/Debian: sudo apt install ffmpeg
//   - videoグループへの参加: デバイスアクセス権限
//     sudo usermod -a -G video $USER
package camera
