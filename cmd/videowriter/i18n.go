package main

import (
	"github.com/ideamans/go-l10n"
)

func init() {
	l10n.Register("ja", l10n.LexiconMap{
		// Flag categories
		"Output":   "出力先",
		"Frames":   "フレーム",
		"Session":  "セッション",
		"Audio":    "オーディオ",
		"Encoding": "エンコード",
		"Logging":  "ログ",

		// Commands
		"Record rendered frames and audio into an MP4 file":    "レンダリングしたフレームと音声をMP4ファイルに記録",
		"Record an animated test scene":                        "アニメーションするテストシーンを記録",
		"Show version information":                             "バージョン情報を表示",
		"Show tracks and sample counts of a recorded MP4 file": "記録したMP4ファイルのトラックとサンプル数を表示",
		"Exactly one MP4 file is required":                     "MP4ファイルを1つ指定してください",

		// Inspect output
		"%s: fragmented, %d fragments":                        "%s: フラグメント形式、%d フラグメント",
		"%s: progressive":                                     "%s: プログレッシブ形式",
		"Track %d: %s %s, %d samples (%d sync), %v, %d bytes": "トラック %d: %s %s、%d サンプル（同期 %d）、%v、%d バイト",
		"  %d Hz, %d channels":                                "  %d Hz、%d チャンネル",
		"videowriter version %s":                              "videowriter バージョン %s",

		// Flags
		"Output MP4 file path or file:// URL":                                 "出力MP4ファイルのパスまたは file:// URL",
		"Copy the finished file into this directory":                          "完成したファイルをこのディレクトリにコピー",
		"Frame width in pixels":                                               "フレームの幅（ピクセル）",
		"Frame height in pixels":                                              "フレームの高さ（ピクセル）",
		"Frames per second":                                                   "フレームレート",
		"Recording duration":                                                  "録画時間",
		"Render into pooled textures instead of reading back the surface":     "サーフェスを読み戻さずプールされたテクスチャに描画",
		"Pace producers in real time and drop frames when the writer is busy": "リアルタイムで生成し、書き込みが追いつかない場合はフレームを破棄",
		"Pixel buffer pool size (0 = automatic)":                              "ピクセルバッファプールのサイズ（0 = 自動）",
		"Record a sine tone on an audio track":                                "サイン波をオーディオトラックに記録",
		"Audio sample rate in Hz":                                             "オーディオのサンプルレート（Hz）",
		"Audio channel count":                                                 "オーディオのチャンネル数",
		"Video codec (auto, h264, mjpeg)":                                     "動画コーデック（auto, h264, mjpeg）",
		"JPEG quality for MJPEG (1-100)":                                      "MJPEGのJPEG品質（1-100）",
		"x264 CRF for H.264 (0-51, lower is better)":                          "H.264のx264 CRF値（0-51、低いほど高品質）",
		"Path to the ffmpeg executable":                                       "ffmpeg実行ファイルのパス",
		"Video frames per MP4 fragment":                                       "MP4フラグメントあたりの動画フレーム数",
		"YAML config file":                                                    "YAML設定ファイル",
		"Load environment variables from this file":                           "このファイルから環境変数を読み込む",
		"Log level (debug, info, warn, error)":                                "ログレベル（debug, info, warn, error）",
		"Log format (console, json)":                                          "ログ形式（console, json）",
		"Suppress all log output":                                             "すべてのログ出力を抑制",
	})
}
